package models

import "time"

// Category is a user-scoped expense label.
type Category struct {
	ID        string
	Name      string
	Emoji     string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CategoryPatch carries the mutable category fields; nil means "leave as is".
type CategoryPatch struct {
	Name  *string
	Emoji *string
}
