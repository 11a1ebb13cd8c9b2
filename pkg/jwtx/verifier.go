package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	// ErrInvalidToken covers every reason a token is rejected.
	ErrInvalidToken = errors.New("jwtx: invalid token")

	// ErrExpiredToken is returned for well-formed tokens past exp. It matches
	// ErrInvalidToken under errors.Is.
	ErrExpiredToken = fmt.Errorf("%w: token expired", ErrInvalidToken)

	ErrIssuer      = fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	ErrNotYetValid = fmt.Errorf("%w: token not yet valid", ErrInvalidToken)
	ErrWrongType   = fmt.Errorf("%w: wrong token type", ErrInvalidToken)
)

// HS256Verifier validates tokens produced by HS256Signer.
type HS256Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewHS256Verifier creates a verifier for secret that requires iss == issuer.
func NewHS256Verifier(secret []byte, issuer string) *HS256Verifier {
	return &HS256Verifier{secret: secret, issuer: issuer}
}

// WithLeeway allows small clock skew when validating exp/nbf.
func (v *HS256Verifier) WithLeeway(d time.Duration) *HS256Verifier {
	v.leeway = d
	return v
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *HS256Verifier) Verify(tokenStr string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return Claims{}, ErrIssuer
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrNotYetValid
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return Claims{}, ErrWrongType
	}

	return *claims, nil
}
