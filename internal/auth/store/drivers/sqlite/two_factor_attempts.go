package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type twoFactorAttemptsRepo struct {
	q querier
}

func (r *twoFactorAttemptsRepo) Count(ctx context.Context, userID string) (int, error) {
	var failures int
	err := r.q.QueryRowContext(ctx, `
		SELECT failures FROM two_factor_attempts
		WHERE user_id = ? AND window_ends_at > ?`,
		userID, toMillis(time.Now()),
	).Scan(&failures)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return failures, err
}

// RecordFailure starts a new window when none is open. SET expressions see
// the row as it was before the update, so both CASEs test the old window.
func (r *twoFactorAttemptsRepo) RecordFailure(ctx context.Context, userID string, window time.Duration) (int, error) {
	now := time.Now()

	var failures int
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO two_factor_attempts (user_id, failures, window_ends_at)
		VALUES (?, 1, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			failures       = CASE WHEN window_ends_at <= ? THEN 1 ELSE failures + 1 END,
			window_ends_at = CASE WHEN window_ends_at <= ? THEN excluded.window_ends_at ELSE window_ends_at END
		RETURNING failures`,
		userID, toMillis(now.Add(window)), toMillis(now), toMillis(now),
	).Scan(&failures)
	return failures, err
}

func (r *twoFactorAttemptsRepo) Reset(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM two_factor_attempts WHERE user_id = ?`, userID)
	return err
}

func (r *twoFactorAttemptsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM two_factor_attempts WHERE window_ends_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
