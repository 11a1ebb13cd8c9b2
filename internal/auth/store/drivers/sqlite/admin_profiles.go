package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/aussiebroadwan/siteauth/internal/auth/store"
)

type adminProfilesRepo struct {
	q querier
}

func (r *adminProfilesRepo) GetProfile(ctx context.Context, userID string) (domain.AdminProfile, error) {
	var (
		p         domain.AdminProfile
		secret    sql.NullString
		codes     sql.NullString
		createdAt int64
		updatedAt int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT user_id, two_factor_enabled, two_factor_secret, two_factor_backup_codes, created_at, updated_at
		FROM admin_profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.TwoFactorEnabled, &secret, &codes, &createdAt, &updatedAt)
	if err != nil {
		return domain.AdminProfile{}, mapNotFound(err)
	}

	p.TwoFactorSecret = mapNullStringPtr(secret)
	p.TwoFactorBackupCodes = mapNullStringPtr(codes)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

func (r *adminProfilesRepo) SaveSecret(ctx context.Context, userID, encSecret string) error {
	now := toMillis(time.Now())
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO admin_profiles (user_id, two_factor_enabled, two_factor_secret, two_factor_backup_codes, created_at, updated_at)
		VALUES (?, 0, ?, NULL, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			two_factor_enabled = 0,
			two_factor_secret = excluded.two_factor_secret,
			two_factor_backup_codes = NULL,
			updated_at = excluded.updated_at`,
		userID, encSecret, now, now,
	)
	return err
}

func (r *adminProfilesRepo) Enable(ctx context.Context, userID, encBackupCodes string) error {
	return requireRow(r.q.ExecContext(ctx, `
		UPDATE admin_profiles
		SET two_factor_enabled = 1, two_factor_backup_codes = ?, updated_at = ?
		WHERE user_id = ? AND two_factor_secret IS NOT NULL`,
		encBackupCodes, toMillis(time.Now()), userID))
}

func (r *adminProfilesRepo) Disable(ctx context.Context, userID string) error {
	return requireRow(r.q.ExecContext(ctx, `
		UPDATE admin_profiles
		SET two_factor_enabled = 0, two_factor_secret = NULL, two_factor_backup_codes = NULL, updated_at = ?
		WHERE user_id = ?`,
		toMillis(time.Now()), userID))
}

func (r *adminProfilesRepo) SwapBackupCodes(ctx context.Context, userID, expected, next string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE admin_profiles
		SET two_factor_backup_codes = ?, updated_at = ?
		WHERE user_id = ? AND two_factor_backup_codes = ?`,
		next, toMillis(time.Now()), userID, expected)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}
