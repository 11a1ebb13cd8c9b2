package domain

import (
	"strings"
	"time"
)

type User struct {
	ID           string
	Email        string // stored lower-cased
	PasswordHash string // bcrypt encoded
	FullName     string
	Role         Role
	IsActive     bool
	LastLogin    *time.Time // nil until the first completed login
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail is applied on every write and lookup so addresses compare
// case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
