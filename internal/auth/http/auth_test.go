package http_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	authhttp "github.com/aussiebroadwan/siteauth/internal/auth/http"
	"github.com/aussiebroadwan/siteauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	out, err := env.client().Register(ctx, authsdk.RegisterRequest{
		Email:    "Bob@Example.com",
		Password: "bob-password",
		FullName: "Bob",
	})
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", out.User.Email)
	require.Equal(t, "user", out.User.Role)
	require.True(t, out.User.IsActive)
	require.Nil(t, out.User.LastLogin)

	tests := []struct {
		name    string
		req     authsdk.RegisterRequest
		message string
	}{
		{
			name:    "duplicate email",
			req:     authsdk.RegisterRequest{Email: "bob@example.com", Password: "another-password", FullName: "Bob"},
			message: "Email is already registered",
		},
		{
			name:    "invalid email",
			req:     authsdk.RegisterRequest{Email: "not-an-email", Password: "bob-password", FullName: "Bob"},
			message: "email must be a valid email",
		},
		{
			name:    "short password",
			req:     authsdk.RegisterRequest{Email: "carol@example.com", Password: "short", FullName: "Carol"},
			message: "password must be at least 8 characters",
		},
		{
			name:    "missing name",
			req:     authsdk.RegisterRequest{Email: "carol@example.com", Password: "carol-password"},
			message: "fullName is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client().Register(ctx, tt.req)
			apiErr := requireStatus(t, err, http.StatusBadRequest)
			require.Equal(t, tt.message, apiErr.Message)
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		resp := postJSON(t, env.srv.URL+"/auth/register", "", map[string]string{
			"email": "dave@example.com", "password": "dave-password", "fullName": "Dave", "role": "admin",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerAs(t, "bob@example.com", "bob-password", domain.RoleUser)

	t.Run("success sets the refresh cookie", func(t *testing.T) {
		resp := postJSON(t, env.srv.URL+"/auth/login", "", authsdk.LoginRequest{
			Email: "bob@example.com", Password: "bob-password",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

		c := findCookie(resp, authsdk.RefreshCookie)
		require.NotNil(t, c)
		require.NotEmpty(t, c.Value)
		require.True(t, c.HttpOnly)
		require.False(t, c.Secure)
		require.Equal(t, "/auth", c.Path)
		require.Equal(t, http.SameSiteStrictMode, c.SameSite)
		require.Equal(t, 30*24*60*60, c.MaxAge)
	})

	t.Run("session", func(t *testing.T) {
		_, s := env.login(t, "bob@example.com", "bob-password")
		require.NotEmpty(t, s.AccessToken())
		require.Equal(t, "bob@example.com", s.User().Email)

		me, err := s.Me(ctx)
		require.NoError(t, err)
		require.Equal(t, "bob@example.com", me.Email)
		require.NotNil(t, me.LastLogin)
	})

	t.Run("failures are indistinguishable", func(t *testing.T) {
		_, errWrong := env.client().Login(ctx, "bob@example.com", "wrong-password")
		_, errUnknown := env.client().Login(ctx, "nobody@example.com", "bob-password")

		wrong := requireStatus(t, errWrong, http.StatusUnauthorized)
		unknown := requireStatus(t, errUnknown, http.StatusUnauthorized)
		require.Equal(t, wrong.Message, unknown.Message)
	})

	t.Run("deactivated user", func(t *testing.T) {
		env.registerAs(t, "carol@example.com", "carol-password", domain.RoleUser)
		u, err := env.store.Users().GetUserByEmail(ctx, "carol@example.com")
		require.NoError(t, err)
		require.NoError(t, env.store.Users().UpdateActive(ctx, u.ID, false))

		_, err = env.client().Login(ctx, "carol@example.com", "carol-password")
		apiErr := requireStatus(t, err, http.StatusUnauthorized)
		require.Equal(t, "Invalid email or password", apiErr.Message)
	})
}

func TestLogin_SecureCookieInProduction(t *testing.T) {
	env := newTestEnv(t, func(o *authhttp.Options) { o.Production = true })
	env.registerAs(t, "bob@example.com", "bob-password", domain.RoleUser)

	resp := postJSON(t, env.srv.URL+"/auth/login", "", authsdk.LoginRequest{
		Email: "bob@example.com", Password: "bob-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	c := findCookie(resp, authsdk.RefreshCookie)
	require.NotNil(t, c)
	require.True(t, c.Secure)
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerAs(t, "bob@example.com", "bob-password", domain.RoleUser)

	c, s := env.login(t, "bob@example.com", "bob-password")
	first := env.refreshCookie(t, c)
	require.NotEmpty(t, first)

	// Cookie based rotation
	require.NoError(t, s.Refresh(ctx))
	second := env.refreshCookie(t, c)
	require.NotEmpty(t, second)
	require.NotEqual(t, first, second)

	_, err := s.Me(ctx)
	require.NoError(t, err)

	t.Run("reusing a rotated token fails", func(t *testing.T) {
		_, err := env.client().RefreshWithToken(ctx, first)
		requireStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("body token works without a cookie", func(t *testing.T) {
		out, err := env.client().RefreshWithToken(ctx, second)
		require.NoError(t, err)
		require.NotEmpty(t, out.AccessToken)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := env.client().RefreshWithToken(ctx, s.AccessToken())
		requireStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := env.client().Refresh(ctx)
		requireStatus(t, err, http.StatusUnauthorized)
	})
}

func TestSession_RefreshesOnExpiredAccessToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerAs(t, "bob@example.com", "bob-password", domain.RoleUser)

	c, _ := env.login(t, "bob@example.com", "bob-password")

	// A session with a garbage access token recovers through the cookie.
	s := c.NewSessionFromToken("not-a-jwt")
	me, err := s.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", me.Email)
	require.NotEqual(t, "not-a-jwt", s.AccessToken())
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerAs(t, "bob@example.com", "bob-password", domain.RoleUser)

	c, s := env.login(t, "bob@example.com", "bob-password")
	token := env.refreshCookie(t, c)

	require.NoError(t, s.Logout(ctx))
	require.Empty(t, env.refreshCookie(t, c), "cookie cleared")
	require.Empty(t, s.AccessToken())

	_, err := env.client().RefreshWithToken(ctx, token)
	requireStatus(t, err, http.StatusUnauthorized)

	// Logging out twice is fine.
	require.NoError(t, env.client().Logout(ctx))
}

func TestMe_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.srv.URL + "/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerAs(t, "bob@example.com", "bob-password", domain.RoleUser)
	_, s := env.login(t, "bob@example.com", "bob-password")

	err := s.ChangePassword(ctx, "wrong-password", "new-bob-password")
	requireStatus(t, err, http.StatusUnauthorized)

	err = s.ChangePassword(ctx, "bob-password", "bob-password")
	apiErr := requireStatus(t, err, http.StatusBadRequest)
	require.Equal(t, "newPassword must differ from the current password", apiErr.Message)

	require.NoError(t, s.ChangePassword(ctx, "bob-password", "new-bob-password"))

	_, err = env.client().Login(ctx, "bob@example.com", "bob-password")
	requireStatus(t, err, http.StatusUnauthorized)
	_, err = env.client().Login(ctx, "bob@example.com", "new-bob-password")
	require.NoError(t, err)
}
