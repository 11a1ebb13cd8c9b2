package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes. Services may override them from configuration.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
	DefaultPendingTokenTTL = 5 * time.Minute
)

// TokenType distinguishes access tokens from refresh tokens so one can never
// be presented in place of the other.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// ScopeTwoFactorPending marks an access token that proves the password step
// only. It is accepted solely by the second-factor login endpoint.
const ScopeTwoFactorPending = "2fa-pending"

// Claims are the claims carried by every token the service issues.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the subject at issue time.
	Email string `json:"email,omitempty"`

	// Role of the subject at issue time ("user", "content", "admin").
	Role string `json:"role,omitempty"`

	// Type is "access" or "refresh".
	Type TokenType `json:"typ"`

	// Scope narrows what the token may be used for. Empty means a full token.
	Scope string `json:"scope,omitempty"`
}

// NewClaims builds claims for subject valid from now for ttl.
func NewClaims(
	subject, email, role string,
	typ TokenType,
	scope string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email: email,
		Role:  role,
		Type:  typ,
		Scope: scope,
	}
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpiredToken
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ExpiresAtTime returns exp or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
