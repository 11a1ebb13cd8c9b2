// Package redis keeps the refresh-token revocation list and the
// second-factor failure counters in Redis so several service replicas share
// them.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/siteauth/internal/auth/store"
	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 5 * time.Second

// Config captures the settings for establishing a Redis connection.
type Config struct {
	Addr    string
	DB      int
	Timeout time.Duration
}

// Connect initialises a Redis client and validates connectivity with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// RevokedTokens implements store.RevokedTokens.
// Key format: revoked:<jti>, expiring with the token itself.
type RevokedTokens struct {
	client *redis.Client
	now    func() time.Time
}

var _ store.RevokedTokens = (*RevokedTokens)(nil)

func NewRevokedTokens(client *redis.Client) *RevokedTokens {
	return &RevokedTokens{client: client, now: time.Now}
}

func (r *RevokedTokens) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	// Keep the key at least a second so an already-expired token still
	// resolves the race between two concurrent refreshes.
	ttl := max(expiresAt.Sub(r.now()), time.Second)

	ok, err := r.client.SetNX(ctx, r.key(jti), userID, ttl).Result()
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if !ok {
		return store.ErrAlreadyExists
	}
	return nil
}

// DeleteExpired is a no-op, Redis expires keys on its own.
func (r *RevokedTokens) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Ping reports whether Redis is reachable; used by readiness.
func (r *RevokedTokens) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RevokedTokens) key(jti string) string {
	return "revoked:" + jti
}

// TwoFactorAttempts implements store.TwoFactorAttempts.
// Key format: 2fa-attempts:<userID>, expiring when the window ends.
type TwoFactorAttempts struct {
	client *redis.Client
}

var _ store.TwoFactorAttempts = (*TwoFactorAttempts)(nil)

func NewTwoFactorAttempts(client *redis.Client) *TwoFactorAttempts {
	return &TwoFactorAttempts{client: client}
}

func (a *TwoFactorAttempts) Count(ctx context.Context, userID string) (int, error) {
	n, err := a.client.Get(ctx, a.key(userID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load failed attempts: %w", err)
	}
	return n, nil
}

func (a *TwoFactorAttempts) RecordFailure(ctx context.Context, userID string, window time.Duration) (int, error) {
	key := a.key(userID)

	n, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("record failed attempt: %w", err)
	}
	if n == 1 {
		if err := a.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("record failed attempt: %w", err)
		}
	}
	return int(n), nil
}

func (a *TwoFactorAttempts) Reset(ctx context.Context, userID string) error {
	if err := a.client.Del(ctx, a.key(userID)).Err(); err != nil {
		return fmt.Errorf("reset failed attempts: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op, windows expire with their keys.
func (a *TwoFactorAttempts) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (a *TwoFactorAttempts) key(userID string) string {
	return "2fa-attempts:" + userID
}
