package jwtx

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/siteauth/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret NewHS256Signer accepts.
const MinSecretLength = 32

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// HS256Signer signs tokens with a shared HMAC-SHA256 secret.
type HS256Signer struct {
	secret []byte
}

// NewHS256Signer creates a signer for secret.
func NewHS256Signer(secret []byte) (*HS256Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwtx: secret must be at least %d bytes", MinSecretLength)
	}
	return &HS256Signer{secret: secret}, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign serialises and signs claims.
func (s *HS256Signer) Sign(c Claims) (string, error) {
	if c.Subject == "" {
		return "", errors.New("jwtx: missing subject")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// NewJTI returns a unique, sortable identifier for the "jti" claim.
func NewJTI() string {
	return idx.New().String()
}
