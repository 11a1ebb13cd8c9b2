//go:build e2e

package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/siteauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestSeededAdminLogin verifies ADMIN_EMAIL/ADMIN_PASSWORD create the first
// administrator on an empty database.
func TestSeededAdminLogin(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewSDKClient(baseURL)

	session := loginAdmin(t, client)

	me, err := session.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, adminEmail, me.Email)
	require.Equal(t, adminFullName, me.FullName)
	require.NotNil(t, me.LastLogin)
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	user, session := registerUser(t, client, "bob@example.com", "bob-password", "Bob")
	require.Equal(t, "user", user.Role)

	_, err := client.Register(ctx, authsdk.RegisterRequest{Email: "bob@example.com", Password: "other-password", FullName: "Bob"})
	apiErr := assertStatus(t, err, http.StatusBadRequest, "duplicate email")
	require.Equal(t, "Email is already registered", apiErr.Message)

	_, err = client.Login(ctx, "bob@example.com", "wrong-password")
	apiErr = assertStatus(t, err, http.StatusUnauthorized, "wrong password")
	require.Equal(t, "Invalid email or password", apiErr.Message)

	before := session.AccessToken()
	require.NoError(t, session.Refresh(ctx))
	require.NotEqual(t, before, session.AccessToken())

	require.NoError(t, session.Logout(ctx))

	_, err = client.Refresh(ctx)
	assertStatus(t, err, http.StatusUnauthorized, "refresh after logout")
}

func TestChangePasswordAndRoles(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	admin := loginAdmin(t, client)
	carol, carolSession := registerUser(t, authsdk.NewSDKClient(baseURL), "carol@example.com", "carol-password", "Carol")

	require.NoError(t, carolSession.ChangePassword(ctx, "carol-password", "carol-new-password"))
	_, err := client.Login(ctx, "carol@example.com", "carol-password")
	assertStatus(t, err, http.StatusUnauthorized, "old password")

	_, err = carolSession.SetUserRole(ctx, carol.ID, "admin")
	apiErr := assertStatus(t, err, http.StatusForbidden, "self promotion")
	require.Equal(t, []string{"admin"}, apiErr.Required)

	updated, err := admin.SetUserRole(ctx, carol.ID, "content")
	require.NoError(t, err)
	require.Equal(t, "content", updated.Role)

	_, err = admin.SetUserActive(ctx, carol.ID, false)
	require.NoError(t, err)
	_, err = client.Login(ctx, "carol@example.com", "carol-new-password")
	assertStatus(t, err, http.StatusUnauthorized, "deactivated account")

	require.NoError(t, admin.DeleteUser(ctx, carol.ID))
	_, err = admin.GetUser(ctx, carol.ID)
	assertStatus(t, err, http.StatusNotFound, "deleted user")
}
