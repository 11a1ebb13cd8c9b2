package service

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/siteauth/pkg/cryptox"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password and inactive
	// accounts alike so callers cannot enumerate users.
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrEmailTaken          = errors.New("email already registered")
	ErrUserNotFound        = errors.New("user not found")

	ErrTwoFactorNotEnabled     = errors.New("two-factor authentication is not enabled")
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication is already enabled")
	ErrTwoFactorNotSetUp       = errors.New("two-factor setup has not been started")
	ErrInvalidTOTPCode         = errors.New("invalid authentication code")
	ErrInvalidBackupCode       = errors.New("invalid backup code")
	ErrBackupCodeContention    = errors.New("backup codes changed concurrently, try again")
	ErrTooManyAttempts         = errors.New("too many failed two-factor attempts")

	// ErrSecretUnreadable means a stored 2FA secret or backup-code bundle
	// could not be decrypted. It matches cryptox.ErrDecryption.
	ErrSecretUnreadable = fmt.Errorf("two-factor secret unreadable: %w", cryptox.ErrDecryption)

	ErrInvalidRole      = errors.New("invalid role")
	ErrSelfModification = errors.New("administrators cannot modify their own role, status or account")
)
