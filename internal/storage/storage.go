package storage

import "errors"

// Sentinel errors shared by all storage backends. Services translate these
// into their own error kinds at the boundary.
var (
	ErrUserAlreadyExists     = errors.New("user already exists")
	ErrUserNotFound          = errors.New("user not found")
	ErrTokenNotFound         = errors.New("refresh token not found")
	ErrCategoryAlreadyExists = errors.New("category already exists")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrExpenseNotFound       = errors.New("expense not found")
	ErrRateNotFound          = errors.New("rate snapshot not found")
)
