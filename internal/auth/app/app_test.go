package app_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/siteauth/internal/auth/app"
	"github.com/aussiebroadwan/siteauth/pkg/authsdk"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, extra map[string]string) *authsdk.SDKClient {
	t.Helper()

	env := requiredEnv()
	env["AUTH_DATABASE_FILE"] = ":memory:"
	env["BCRYPT_COST"] = "4"
	env["LOG_LEVEL"] = "error"
	env["ADMIN_EMAIL"] = "Admin@Example.com"
	env["ADMIN_PASSWORD"] = "admin-password"
	for k, v := range extra {
		env[k] = v
	}

	ctx := context.Background()
	cfg, err := app.LoadConfigWith(ctx, envconfig.MapLookuper(env))
	require.NoError(t, err)

	a, err := app.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return authsdk.NewSDKClient(srv.URL)
}

func TestApplication_SeedsAdmin(t *testing.T) {
	c := newApp(t, nil)
	ctx := context.Background()

	s, err := c.Authenticate(ctx, "admin@example.com", "admin-password")
	require.NoError(t, err)
	require.Equal(t, "admin", s.User().Role)

	health, err := c.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.Empty(t, health.Checks.Revocations)
}

func TestApplication_RedisRevocations(t *testing.T) {
	mr := miniredis.RunT(t)
	c := newApp(t, map[string]string{"REDIS_ADDR": mr.Addr()})
	ctx := context.Background()

	s, err := c.Authenticate(ctx, "admin@example.com", "admin-password")
	require.NoError(t, err)

	health, err := c.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", health.Checks.Revocations)

	// Refresh rotation writes the old jti into redis.
	require.NoError(t, s.Refresh(ctx))
	require.Len(t, mr.Keys(), 1)

	t.Run("two-factor failures are counted in redis", func(t *testing.T) {
		_, err := s.SetupTwoFactor(ctx)
		require.NoError(t, err)

		_, err = s.EnableTwoFactor(ctx, "000000")
		require.Error(t, err)

		user, err := s.Me(ctx)
		require.NoError(t, err)
		failures, err := mr.Get("2fa-attempts:" + user.ID)
		require.NoError(t, err)
		require.Equal(t, "1", failures)
	})
}

func TestApplication_RedisUnreachable(t *testing.T) {
	env := requiredEnv()
	env["AUTH_DATABASE_FILE"] = ":memory:"
	env["LOG_LEVEL"] = "error"
	env["REDIS_ADDR"] = "127.0.0.1:1"

	ctx := context.Background()
	cfg, err := app.LoadConfigWith(ctx, envconfig.MapLookuper(env))
	require.NoError(t, err)

	_, err = app.New(ctx, cfg)
	require.ErrorContains(t, err, "redis")
}
