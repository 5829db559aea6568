package core

import (
	"time"
)

// User is a shop operator who can sign in to the back office.
type User struct {
	ID           int
	Username     string
	Email        string
	PasswordHash string
	IsStaff      bool
	CreatedAt    time.Time
}
