package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/aussiebroadwan/siteauth/internal/auth/metrics"
	"github.com/aussiebroadwan/siteauth/internal/auth/store"
	"github.com/aussiebroadwan/siteauth/pkg/cryptox"
	"github.com/aussiebroadwan/siteauth/pkg/otpx"
	"github.com/aussiebroadwan/siteauth/pkg/slogx"
)

const (
	// DefaultMaxFailedAttempts wrong codes lock a user out of every
	// code-checking operation until DefaultLockoutWindow has passed since
	// the first of them.
	DefaultMaxFailedAttempts = 5
	DefaultLockoutWindow     = 15 * time.Minute

	// backupCodeRetrySlack allows for swaps that rewrite the bundle
	// without consuming a code.
	backupCodeRetrySlack = 2
)

// TwoFactorService owns TOTP enrolment and second-factor verification.
type TwoFactorService struct {
	Store  store.Store
	Cipher *cryptox.SecretCipher
	TOTP   *otpx.Engine
	Tokens *TokenService

	// Attempts overrides Store.TwoFactorAttempts(), e.g. with a Redis
	// counter shared by every replica.
	Attempts store.TwoFactorAttempts

	// MaxFailedAttempts defaults to DefaultMaxFailedAttempts.
	MaxFailedAttempts int

	// LockoutWindow defaults to DefaultLockoutWindow.
	LockoutWindow time.Duration

	// BackupCodeCount defaults to otpx.DefaultBackupCodeCount.
	BackupCodeCount int

	// Now defaults to time.Now.
	Now func() time.Time
}

// VerifyLogin completes a login that stopped at the password step. On
// success LastLogin is recorded and a full token pair issued.
func (s *TwoFactorService) VerifyLogin(ctx context.Context, userID, code string, useBackupCode bool) (domain.User, domain.TokenPair, error) {
	// 1. The account must still exist and be active
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, domain.TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive {
		return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	// 2. Check the second factor
	if err := s.Verify(ctx, userID, code, useBackupCode); err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	// 3. Record the login and issue tokens
	pair, err := completeLogin(ctx, s.Store, s.Tokens, &u, s.now())
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	slogx.FromContext(ctx).Info("user logged in with second factor",
		slog.String("user_id", u.ID),
		slog.Bool("backup_code", useBackupCode),
	)
	return u, pair, nil
}

// Verify checks a TOTP code, or consumes a backup code, for userID.
func (s *TwoFactorService) Verify(ctx context.Context, userID, code string, useBackupCode bool) error {
	method := "totp"
	if useBackupCode {
		method = "backup_code"
	}

	err := s.limitAttempts(ctx, userID, func() error {
		profile, err := s.enabledProfile(ctx, s.Store, userID)
		if err != nil {
			return err
		}
		if useBackupCode {
			return s.consumeBackupCode(ctx, profile, code)
		}
		return s.checkTOTP(profile, code)
	})

	switch {
	case err == nil:
		metrics.TwoFactorVerificationsTotal.WithLabelValues(method, "success").Inc()
	case errors.Is(err, ErrInvalidTOTPCode), errors.Is(err, ErrInvalidBackupCode):
		metrics.TwoFactorVerificationsTotal.WithLabelValues(method, "invalid").Inc()
	case errors.Is(err, ErrTooManyAttempts):
		metrics.TwoFactorVerificationsTotal.WithLabelValues(method, "locked_out").Inc()
	default:
		metrics.TwoFactorVerificationsTotal.WithLabelValues(method, "error").Inc()
		slogx.FromContext(ctx).Error("two-factor verification failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
	return err
}

// Setup generates and stores a new TOTP secret. The profile stays disabled
// until Enable confirms the user can produce codes.
func (s *TwoFactorService) Setup(ctx context.Context, u domain.User) (domain.TwoFactorSetup, error) {
	// 1. Refuse to overwrite an active secret
	profile, err := s.Store.AdminProfiles().GetProfile(ctx, u.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.TwoFactorSetup{}, fmt.Errorf("load two-factor profile: %w", err)
	}
	if err == nil && profile.TwoFactorEnabled {
		return domain.TwoFactorSetup{}, ErrTwoFactorAlreadyEnabled
	}

	// 2. Generate the secret
	key, err := s.TOTP.GenerateSecret(u.Email)
	if err != nil {
		return domain.TwoFactorSetup{}, err
	}

	// 3. Store it encrypted
	enc, err := s.Cipher.Encrypt(key.Secret)
	if err != nil {
		return domain.TwoFactorSetup{}, fmt.Errorf("encrypt secret: %w", err)
	}
	if err := s.Store.AdminProfiles().SaveSecret(ctx, u.ID, enc); err != nil {
		return domain.TwoFactorSetup{}, fmt.Errorf("store secret: %w", err)
	}

	return domain.TwoFactorSetup{Secret: key.Secret, OTPAuthURL: key.URL}, nil
}

// Enable confirms setup with a TOTP code and returns the plaintext backup
// codes. They are never retrievable again.
func (s *TwoFactorService) Enable(ctx context.Context, userID, code string) ([]string, error) {
	var codes []string
	err := s.limitAttempts(ctx, userID, func() error {
		return s.Store.WithTx(ctx, func(tx store.Tx) error {
			profile, err := tx.AdminProfiles().GetProfile(ctx, userID)
			if errors.Is(err, store.ErrNotFound) {
				return ErrTwoFactorNotSetUp
			}
			if err != nil {
				return fmt.Errorf("load two-factor profile: %w", err)
			}
			if profile.TwoFactorEnabled {
				return ErrTwoFactorAlreadyEnabled
			}
			if !profile.HasSecret() {
				return ErrTwoFactorNotSetUp
			}

			if err := s.checkTOTP(profile, code); err != nil {
				return err
			}

			var sealed string
			if codes, sealed, err = s.newBackupCodes(userID); err != nil {
				return err
			}
			if err := tx.AdminProfiles().Enable(ctx, userID, sealed); err != nil {
				return fmt.Errorf("enable two-factor: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("two-factor enabled", slog.String("user_id", userID))
	return codes, nil
}

// Disable turns two-factor off. A current TOTP code is required.
func (s *TwoFactorService) Disable(ctx context.Context, userID, code string) error {
	err := s.limitAttempts(ctx, userID, func() error {
		return s.Store.WithTx(ctx, func(tx store.Tx) error {
			profile, err := s.enabledProfile(ctx, tx, userID)
			if err != nil {
				return err
			}
			if err := s.checkTOTP(profile, code); err != nil {
				return err
			}

			if err := tx.AdminProfiles().Disable(ctx, userID); err != nil {
				return fmt.Errorf("disable two-factor: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("two-factor disabled", slog.String("user_id", userID))
	return nil
}

// RegenerateBackupCodes replaces the whole backup-code set.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	var codes []string
	err := s.limitAttempts(ctx, userID, func() error {
		return s.Store.WithTx(ctx, func(tx store.Tx) error {
			profile, err := s.enabledProfile(ctx, tx, userID)
			if err != nil {
				return err
			}
			if err := s.checkTOTP(profile, code); err != nil {
				return err
			}

			var sealed string
			if codes, sealed, err = s.newBackupCodes(userID); err != nil {
				return err
			}
			if err := tx.AdminProfiles().Enable(ctx, userID, sealed); err != nil {
				return fmt.Errorf("store backup codes: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *TwoFactorService) Status(ctx context.Context, userID string) (domain.TwoFactorStatus, error) {
	profile, err := s.Store.AdminProfiles().GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.TwoFactorStatus{}, nil
	}
	if err != nil {
		return domain.TwoFactorStatus{}, fmt.Errorf("load two-factor profile: %w", err)
	}
	if !profile.TwoFactorEnabled {
		return domain.TwoFactorStatus{}, nil
	}

	hashes, err := s.openBackupCodes(profile)
	if err != nil {
		return domain.TwoFactorStatus{}, err
	}
	return domain.TwoFactorStatus{Enabled: true, BackupCodesRemaining: len(hashes)}, nil
}

// limitAttempts runs check unless userID has used up its failed attempts.
// A wrong code counts towards the lockout and a correct one clears it.
// The counter is touched outside check so it never joins check's transaction.
func (s *TwoFactorService) limitAttempts(ctx context.Context, userID string, check func() error) error {
	attempts := s.attempts()
	limit := s.MaxFailedAttempts
	if limit <= 0 {
		limit = DefaultMaxFailedAttempts
	}

	failures, err := attempts.Count(ctx, userID)
	if err != nil {
		return fmt.Errorf("load failed attempts: %w", err)
	}
	if failures >= limit {
		return ErrTooManyAttempts
	}

	err = check()
	switch {
	case errors.Is(err, ErrInvalidTOTPCode), errors.Is(err, ErrInvalidBackupCode):
		window := s.LockoutWindow
		if window <= 0 {
			window = DefaultLockoutWindow
		}
		failures, rerr := attempts.RecordFailure(ctx, userID, window)
		if rerr != nil {
			return fmt.Errorf("record failed attempt: %w", rerr)
		}
		if failures >= limit {
			slogx.FromContext(ctx).Warn("two-factor locked after repeated failures",
				slog.String("user_id", userID),
				slog.Int("failures", failures),
				slog.Duration("window", window),
			)
		}
	case err == nil && failures > 0:
		if rerr := attempts.Reset(ctx, userID); rerr != nil {
			slogx.FromContext(ctx).Warn("failed to reset two-factor attempts",
				slog.String("user_id", userID),
				slog.Any("error", rerr),
			)
		}
	}
	return err
}

func (s *TwoFactorService) attempts() store.TwoFactorAttempts {
	if s.Attempts != nil {
		return s.Attempts
	}
	return s.Store.TwoFactorAttempts()
}

func (s *TwoFactorService) enabledProfile(ctx context.Context, st store.Store, userID string) (domain.AdminProfile, error) {
	profile, err := st.AdminProfiles().GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.AdminProfile{}, ErrTwoFactorNotEnabled
	}
	if err != nil {
		return domain.AdminProfile{}, fmt.Errorf("load two-factor profile: %w", err)
	}
	if !profile.TwoFactorEnabled {
		return domain.AdminProfile{}, ErrTwoFactorNotEnabled
	}
	return profile, nil
}

func (s *TwoFactorService) checkTOTP(profile domain.AdminProfile, code string) error {
	if !profile.HasSecret() {
		return ErrTwoFactorNotSetUp
	}

	secret, err := s.Cipher.Decrypt(*profile.TwoFactorSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSecretUnreadable, err)
	}

	if !s.TOTP.VerifyCode(secret, code) {
		return ErrInvalidTOTPCode
	}
	return nil
}

// consumeBackupCode removes one matching code. The stored ciphertext is used
// as a version: a concurrent writer makes the swap fail and we match again
// against a fresh read. Every lost race that consumed a code shrinks the set,
// so the retries are bounded by the number of codes left.
func (s *TwoFactorService) consumeBackupCode(ctx context.Context, profile domain.AdminProfile, code string) error {
	limit := -1
	for attempt := 0; limit < 0 || attempt < limit; attempt++ {
		if attempt > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			var err error
			if profile, err = s.enabledProfile(ctx, s.Store, profile.UserID); err != nil {
				return err
			}
		}
		if profile.TwoFactorBackupCodes == nil {
			return ErrInvalidBackupCode
		}

		hashes, err := s.openBackupCodes(profile)
		if err != nil {
			return err
		}
		if limit < 0 {
			limit = len(hashes) + backupCodeRetrySlack
		}

		next, ok := otpx.ConsumeBackupCode(profile.UserID, code, hashes)
		if !ok {
			return ErrInvalidBackupCode
		}

		sealed, err := s.sealBackupCodes(next)
		if err != nil {
			return err
		}

		err = s.Store.AdminProfiles().SwapBackupCodes(ctx, profile.UserID, *profile.TwoFactorBackupCodes, sealed)
		if errors.Is(err, store.ErrConflict) {
			metrics.BackupCodeConflictsTotal.Inc()
			continue
		}
		if err != nil {
			return fmt.Errorf("store backup codes: %w", err)
		}
		return nil
	}
	return ErrBackupCodeContention
}

func (s *TwoFactorService) newBackupCodes(userID string) ([]string, string, error) {
	n := s.BackupCodeCount
	if n <= 0 {
		n = otpx.DefaultBackupCodeCount
	}

	codes, err := otpx.GenerateBackupCodes(n)
	if err != nil {
		return nil, "", err
	}

	sealed, err := s.sealBackupCodes(otpx.HashBackupCodes(userID, codes))
	if err != nil {
		return nil, "", err
	}
	return codes, sealed, nil
}

func (s *TwoFactorService) openBackupCodes(profile domain.AdminProfile) ([]string, error) {
	if profile.TwoFactorBackupCodes == nil {
		return nil, nil
	}

	plain, err := s.Cipher.Decrypt(*profile.TwoFactorBackupCodes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretUnreadable, err)
	}

	var hashes []string
	if err := json.Unmarshal([]byte(plain), &hashes); err != nil {
		return nil, fmt.Errorf("%w: backup codes: %v", ErrSecretUnreadable, err)
	}
	return hashes, nil
}

func (s *TwoFactorService) sealBackupCodes(hashes []string) (string, error) {
	if hashes == nil {
		hashes = []string{}
	}

	raw, err := json.Marshal(hashes)
	if err != nil {
		return "", err
	}

	sealed, err := s.Cipher.Encrypt(string(raw))
	if err != nil {
		return "", fmt.Errorf("encrypt backup codes: %w", err)
	}
	return sealed, nil
}

func (s *TwoFactorService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
