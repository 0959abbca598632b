package models

import "time"

// User is an account identity. The password is stored only as a bcrypt hash.
type User struct {
	ID        string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}
