package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned by compare-and-swap writes when the stored value
	// no longer matches the expected one.
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories so transactional code gets the same API as
// non-transactional code.
type Store interface {
	Users() Users
	AdminProfiles() AdminProfiles
	RevokedTokens() RevokedTokens
	TwoFactorAttempts() TwoFactorAttempts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches the normalised address exactly.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user. A taken email returns ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	UpdateRole(ctx context.Context, userID string, role domain.Role) error
	UpdateActive(ctx context.Context, userID string, active bool) error

	// DeleteUser cascades to admin_profiles (per schema).
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type AdminProfiles interface {
	// GetProfile returns ErrNotFound when the user never started 2FA setup.
	GetProfile(ctx context.Context, userID string) (domain.AdminProfile, error)

	// SaveSecret creates or resets the profile with a new encrypted secret.
	// The profile is left disabled with no backup codes.
	SaveSecret(ctx context.Context, userID, encSecret string) error

	// Enable turns 2FA on and stores the encrypted backup-code bundle.
	Enable(ctx context.Context, userID, encBackupCodes string) error

	// Disable turns 2FA off and clears the secret and backup codes.
	Disable(ctx context.Context, userID string) error

	// SwapBackupCodes replaces the bundle only if it still equals expected.
	// Returns ErrConflict when another writer got there first.
	SwapBackupCodes(ctx context.Context, userID, expected, next string) error
}

type RevokedTokens interface {
	// Revoke records jti as used. A jti that is already revoked returns
	// ErrAlreadyExists, so exactly one concurrent caller wins.
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error

	// DeleteExpired drops rows whose token would be rejected on expiry anyway.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TwoFactorAttempts counts wrong second-factor codes per user. A window
// opens on the first failure and the count starts over once it ends.
type TwoFactorAttempts interface {
	// Count returns the failures recorded in the current window.
	Count(ctx context.Context, userID string) (int, error)

	// RecordFailure adds a failure and returns the new count.
	RecordFailure(ctx context.Context, userID string, window time.Duration) (int, error)

	// Reset clears the count after a correct code.
	Reset(ctx context.Context, userID string) error

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
