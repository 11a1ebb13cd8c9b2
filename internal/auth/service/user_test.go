package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/aussiebroadwan/siteauth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestUserService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.register(t, "admin@example.com", "admin-password", domain.RoleAdmin)
	bob := f.register(t, "bob@example.com", "bob-password", domain.RoleUser)
	missing := idx.New().String()

	t.Run("get", func(t *testing.T) {
		u, err := f.users.GetUserByID(ctx, bob.ID)
		require.NoError(t, err)
		require.Equal(t, "bob@example.com", u.Email)

		_, err = f.users.GetUserByID(ctx, missing)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("set role", func(t *testing.T) {
		u, err := f.users.SetRole(ctx, admin.ID, bob.ID, domain.RoleContent)
		require.NoError(t, err)
		require.Equal(t, domain.RoleContent, u.Role)

		_, err = f.users.SetRole(ctx, admin.ID, bob.ID, domain.Role("root"))
		require.ErrorIs(t, err, ErrInvalidRole)

		_, err = f.users.SetRole(ctx, admin.ID, admin.ID, domain.RoleUser)
		require.ErrorIs(t, err, ErrSelfModification)

		_, err = f.users.SetRole(ctx, admin.ID, missing, domain.RoleUser)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("set active", func(t *testing.T) {
		u, err := f.users.SetActive(ctx, admin.ID, bob.ID, false)
		require.NoError(t, err)
		require.False(t, u.IsActive)

		_, err = f.auth.Login(ctx, "bob@example.com", "bob-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		u, err = f.users.SetActive(ctx, admin.ID, bob.ID, true)
		require.NoError(t, err)
		require.True(t, u.IsActive)

		_, err = f.users.SetActive(ctx, admin.ID, admin.ID, false)
		require.ErrorIs(t, err, ErrSelfModification)
	})

	t.Run("delete", func(t *testing.T) {
		require.ErrorIs(t, f.users.DeleteUser(ctx, admin.ID, admin.ID), ErrSelfModification)
		require.NoError(t, f.users.DeleteUser(ctx, admin.ID, bob.ID))
		require.ErrorIs(t, f.users.DeleteUser(ctx, admin.ID, bob.ID), ErrUserNotFound)

		_, err := f.users.GetUserByID(ctx, bob.ID)
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}
