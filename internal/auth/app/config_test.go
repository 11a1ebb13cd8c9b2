package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/siteauth/internal/auth/app"
	"github.com/aussiebroadwan/siteauth/pkg/httpx"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"
)

func requiredEnv() map[string]string {
	return map[string]string{
		"JWT_SECRET":                "0123456789abcdef0123456789abcdef",
		"TWO_FACTOR_ENCRYPTION_KEY": "two-factor-key",
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := app.LoadConfigWith(context.Background(), envconfig.MapLookuper(requiredEnv()))
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "dev", cfg.Env)
	require.False(t, cfg.Production())
	require.Equal(t, "auth.db", cfg.DatabaseFile)
	require.Equal(t, "siteauth", cfg.JWT.Issuer)
	require.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	require.Equal(t, 30*24*time.Hour, cfg.JWT.RefreshTTL)
	require.Equal(t, 5*time.Minute, cfg.JWT.PendingTTL)
	require.Equal(t, "Marketing CMS", cfg.TwoFactor.Issuer)
	require.Equal(t, 12, cfg.Passwords.BcryptCost)
	require.Empty(t, cfg.Redis.Addr)
	require.Equal(t, time.Hour, cfg.HousekeepingInterval)
	require.Equal(t, httpx.DefaultRateLimits(), cfg.RateLimit.Profiles())
	require.Equal(t, 5, cfg.TwoFactor.MaxFailedAttempts)
	require.Equal(t, 15*time.Minute, cfg.TwoFactor.LockoutWindow)

	trusted, err := cfg.TrustedProxyPrefixes()
	require.NoError(t, err)
	require.Empty(t, trusted, "forwarding headers are ignored unless proxies are configured")
}

func TestLoadConfig_Overrides(t *testing.T) {
	env := requiredEnv()
	env["ENV"] = "production"
	env["PORT"] = "9000"
	env["REDIS_ADDR"] = "redis:6379"
	env["REDIS_DB"] = "2"
	env["REFRESH_TOKEN_TTL"] = "24h"
	env["RATELIMIT_STRICT_REQUESTS"] = "3"
	env["RATELIMIT_STRICT_WINDOW"] = "30s"
	env["TRUSTED_PROXIES"] = "10.0.0.0/8,192.168.1.10"
	env["TWO_FACTOR_MAX_ATTEMPTS"] = "3"
	env["TWO_FACTOR_LOCKOUT_WINDOW"] = "1h"

	cfg, err := app.LoadConfigWith(context.Background(), envconfig.MapLookuper(env))
	require.NoError(t, err)

	require.True(t, cfg.Production())
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.Equal(t, 2, cfg.Redis.DB)
	require.Equal(t, 24*time.Hour, cfg.JWT.RefreshTTL)

	strict := cfg.RateLimit.Profiles().Strict
	require.Equal(t, 3, strict.RequestsPerWindow)
	require.Equal(t, 30*time.Second, strict.Window)
	require.Equal(t, 5, strict.Burst)

	require.Equal(t, 3, cfg.TwoFactor.MaxFailedAttempts)
	require.Equal(t, time.Hour, cfg.TwoFactor.LockoutWindow)

	trusted, err := cfg.TrustedProxyPrefixes()
	require.NoError(t, err)
	require.Len(t, trusted, 2)
	require.Equal(t, "10.0.0.0/8", trusted[0].String())
	require.Equal(t, "192.168.1.10/32", trusted[1].String())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantErr string
	}{
		{
			name:    "missing jwt secret",
			mutate:  func(m map[string]string) { delete(m, "JWT_SECRET") },
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "short jwt secret",
			mutate:  func(m map[string]string) { m["JWT_SECRET"] = "short" },
			wantErr: "JWT_SECRET must be at least 32 bytes",
		},
		{
			name:    "missing encryption key",
			mutate:  func(m map[string]string) { delete(m, "TWO_FACTOR_ENCRYPTION_KEY") },
			wantErr: "TWO_FACTOR_ENCRYPTION_KEY is required",
		},
		{
			name:    "admin email without password",
			mutate:  func(m map[string]string) { m["ADMIN_EMAIL"] = "admin@example.com" },
			wantErr: "must be set together",
		},
		{
			name:    "zero rate limit",
			mutate:  func(m map[string]string) { m["RATELIMIT_LENIENT_BURST"] = "0" },
			wantErr: "RATELIMIT_LENIENT_*",
		},
		{
			name:    "bad trusted proxy",
			mutate:  func(m map[string]string) { m["TRUSTED_PROXIES"] = "10.0.0.0/8,lb.internal" },
			wantErr: "TRUSTED_PROXIES",
		},
		{
			name:    "zero lockout attempts",
			mutate:  func(m map[string]string) { m["TWO_FACTOR_MAX_ATTEMPTS"] = "0" },
			wantErr: "TWO_FACTOR_MAX_ATTEMPTS",
		},
		{
			name:    "unparsable duration",
			mutate:  func(m map[string]string) { m["ACCESS_TOKEN_TTL"] = "soon" },
			wantErr: "ACCESS_TOKEN_TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := requiredEnv()
			tt.mutate(env)

			_, err := app.LoadConfigWith(context.Background(), envconfig.MapLookuper(env))
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
