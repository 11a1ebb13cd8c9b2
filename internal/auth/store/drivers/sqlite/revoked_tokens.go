package sqlite

import (
	"context"
	"time"
)

type revokedTokensRepo struct {
	q querier
}

func (r *revokedTokensRepo) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, user_id, expires_at, revoked_at)
		VALUES (?, ?, ?, ?)`,
		jti, userID, toMillis(expiresAt), toMillis(time.Now()))
	return mapConstraint(err)
}

func (r *revokedTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
