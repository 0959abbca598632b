package models

import "time"

// RefreshToken represents a refresh token stored in the database.
// At most one live record exists per user (single-session policy).
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair is the credential pair handed to a client on login,
// registration and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
