package models

import "time"

// Expense keeps both the values asserted by the user (or extracted by the
// model) and the amount converted into the reference currency. The converted
// fields are computed once at creation and recomputed only when amount or
// currency change on edit.
type Expense struct {
	ID                    string
	UserDescription       string
	Title                 string
	Amount                float64
	Currency              string
	CategoryID            string
	Category              *Category
	UserID                string
	DefaultCurrencyAmount float64
	DefaultCurrency       string
	CreatedAt             time.Time
}

// ExpensePatch carries the editable expense fields; nil means "leave as is".
type ExpensePatch struct {
	Title      *string
	Amount     *float64
	Currency   *string
	CategoryID *string
}
