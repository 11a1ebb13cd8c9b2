package domain

import "time"

// TokenPair is what a completed login or refresh hands back. The refresh
// token travels in an HttpOnly cookie.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// RevokedToken records a refresh token that may no longer be exchanged.
type RevokedToken struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
	RevokedAt time.Time
}
