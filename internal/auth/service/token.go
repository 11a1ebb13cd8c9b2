package service

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/aussiebroadwan/siteauth/internal/auth/metrics"
	"github.com/aussiebroadwan/siteauth/pkg/jwtx"
)

// TokenService mints and checks the service's JWTs.
type TokenService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Issuer   string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	PendingTTL time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *TokenService) IssueAccessToken(u domain.User) (string, time.Time, error) {
	return s.issue(u, jwtx.TypeAccess, "", orDefault(s.AccessTTL, jwtx.DefaultAccessTokenTTL), "access")
}

func (s *TokenService) IssueRefreshToken(u domain.User) (string, time.Time, error) {
	return s.issue(u, jwtx.TypeRefresh, "", orDefault(s.RefreshTTL, jwtx.DefaultRefreshTokenTTL), "refresh")
}

// IssuePendingToken mints a short-lived access token that only the
// second-factor login endpoint accepts.
func (s *TokenService) IssuePendingToken(u domain.User) (string, error) {
	tok, _, err := s.issue(u, jwtx.TypeAccess, jwtx.ScopeTwoFactorPending, orDefault(s.PendingTTL, jwtx.DefaultPendingTokenTTL), "pending")
	return tok, err
}

// IssuePair mints a full access token plus a refresh token.
func (s *TokenService) IssuePair(u domain.User) (domain.TokenPair, error) {
	access, accessExp, err := s.IssueAccessToken(u)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, refreshExp, err := s.IssueRefreshToken(u)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccessToken accepts access tokens of any scope.
func (s *TokenService) VerifyAccessToken(token string) (jwtx.Claims, error) {
	return s.verify(token, jwtx.TypeAccess)
}

func (s *TokenService) VerifyRefreshToken(token string) (jwtx.Claims, error) {
	return s.verify(token, jwtx.TypeRefresh)
}

// RefreshTTLOrDefault is the refresh cookie lifetime.
func (s *TokenService) RefreshTTLOrDefault() time.Duration {
	return orDefault(s.RefreshTTL, jwtx.DefaultRefreshTokenTTL)
}

func (s *TokenService) verify(token string, want jwtx.TokenType) (jwtx.Claims, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if claims.Type != want {
		return jwtx.Claims{}, jwtx.ErrWrongType
	}
	return claims, nil
}

func (s *TokenService) issue(u domain.User, typ jwtx.TokenType, scope string, ttl time.Duration, label string) (string, time.Time, error) {
	claims := jwtx.NewClaims(u.ID, u.Email, u.Role.String(), typ, scope, s.Issuer, ttl, s.now())

	tok, err := s.Signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", label, err)
	}

	metrics.TokensIssuedTotal.WithLabelValues(label).Inc()
	return tok, claims.ExpiresAtTime(), nil
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
