package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/aussiebroadwan/siteauth/internal/auth/metrics"
	"github.com/aussiebroadwan/siteauth/internal/auth/store"
	"github.com/aussiebroadwan/siteauth/pkg/cryptox"
	"github.com/aussiebroadwan/siteauth/pkg/idx"
	"github.com/aussiebroadwan/siteauth/pkg/slogx"
)

// LoginResult is the outcome of a successful password check. Exactly one of
// Tokens or PendingToken is set.
type LoginResult struct {
	User         domain.User
	Tokens       *domain.TokenPair
	Requires2FA  bool
	PendingToken string
}

type AuthService struct {
	Store     store.Store
	Passwords *cryptox.PasswordHasher
	Tokens    *TokenService

	// Revocations overrides Store.RevokedTokens(), e.g. with the redis list.
	Revocations store.RevokedTokens

	// Now defaults to time.Now.
	Now func() time.Time
}

// Register creates an active account with the lowest role.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	// 1. Hash password
	hash, err := s.Passwords.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	// 2. Create the user
	now := s.now()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        domain.NormalizeEmail(email),
		PasswordHash: hash,
		FullName:     fullName,
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	l.Info("user registered", slog.String("user_id", u.ID))
	return u, nil
}

// Login checks email and password. Accounts with two-factor enabled get a
// pending token instead of real tokens and LastLogin is left untouched until
// the second factor succeeds.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	// 1. Look up the user; burn the same bcrypt time when absent
	u, err := s.Store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		s.Passwords.VerifyDummy(password)
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	// 2. Verify password before looking at account state
	ok, err := s.Passwords.Verify(password, u.PasswordHash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok || !u.IsActive {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return LoginResult{}, ErrInvalidCredentials
	}

	// 3. Upgrade the hash if the configured cost went up
	if s.Passwords.NeedsRehash(u.PasswordHash) {
		if hash, err := s.Passwords.Hash(password); err == nil {
			if err := s.Store.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
				l.Warn("password rehash failed", slog.String("user_id", u.ID), slog.Any("error", err))
			} else {
				u.PasswordHash = hash
			}
		}
	}

	// 4. Second factor required?
	profile, err := s.Store.AdminProfiles().GetProfile(ctx, u.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return LoginResult{}, fmt.Errorf("load two-factor profile: %w", err)
	}
	if err == nil && profile.TwoFactorEnabled {
		pending, err := s.Tokens.IssuePendingToken(u)
		if err != nil {
			return LoginResult{}, err
		}
		metrics.LoginAttemptsTotal.WithLabelValues("two_factor_required").Inc()
		return LoginResult{User: u, Requires2FA: true, PendingToken: pending}, nil
	}

	// 5. Record the login and issue tokens
	pair, err := completeLogin(ctx, s.Store, s.Tokens, &u, s.now())
	if err != nil {
		return LoginResult{}, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	l.Info("user logged in", slog.String("user_id", u.ID))
	return LoginResult{User: u, Tokens: &pair}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked before the pair is returned so it can be used at most once; a
// request that fails before that point leaves it usable.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.User, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	// 1. Verify signature, expiry and type
	claims, err := s.Tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("invalid").Inc()
		return domain.User{}, domain.TokenPair{}, ErrInvalidRefreshToken
	}

	// 2. Reload the user so role and status changes apply. Nothing is
	// revoked yet, so a store error here leaves the token usable.
	u, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if err != nil || !u.IsActive {
		// Retire the token so reactivating the account does not revive it.
		if rerr := s.revocations().Revoke(ctx, claims.ID, claims.Subject, claims.ExpiresAtTime()); rerr != nil && !errors.Is(rerr, store.ErrAlreadyExists) {
			l.Warn("failed to revoke refresh token of unavailable user",
				slog.String("user_id", claims.Subject),
				slog.Any("error", rerr),
			)
		}
		metrics.RefreshTotal.WithLabelValues("invalid").Inc()
		return domain.User{}, domain.TokenPair{}, ErrInvalidRefreshToken
	}

	// 3. Sign the new pair before spending the old token
	pair, err := s.Tokens.IssuePair(u)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	// 4. Revoke; the first caller wins and the others discard their pair
	err = s.revocations().Revoke(ctx, claims.ID, claims.Subject, claims.ExpiresAtTime())
	if errors.Is(err, store.ErrAlreadyExists) {
		metrics.RefreshTotal.WithLabelValues("reused").Inc()
		l.Warn("refresh token reuse", slog.String("user_id", claims.Subject))
		return domain.User{}, domain.TokenPair{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return domain.User{}, domain.TokenPair{}, fmt.Errorf("revoke refresh token: %w", err)
	}

	metrics.RefreshTotal.WithLabelValues("success").Inc()
	return u, pair, nil
}

// Logout revokes refreshToken. Invalid or already revoked tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := s.Tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	err = s.revocations().Revoke(ctx, claims.ID, claims.Subject, claims.ExpiresAtTime())
	if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.Passwords.Verify(oldPassword, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.Passwords.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	slogx.FromContext(ctx).Info("password changed", slog.String("user_id", userID))
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *AuthService) revocations() store.RevokedTokens {
	if s.Revocations != nil {
		return s.Revocations
	}
	return s.Store.RevokedTokens()
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// completeLogin records LastLogin on u and issues a token pair. Both the
// password-only and the two-factor paths finish here.
func completeLogin(ctx context.Context, st store.Store, tokens *TokenService, u *domain.User, now time.Time) (domain.TokenPair, error) {
	if err := st.Users().UpdateLastLogin(ctx, u.ID, now); err != nil {
		return domain.TokenPair{}, fmt.Errorf("record last login: %w", err)
	}
	u.LastLogin = &now

	return tokens.IssuePair(*u)
}
