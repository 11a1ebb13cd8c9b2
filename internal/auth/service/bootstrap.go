package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/aussiebroadwan/siteauth/internal/auth/store"
	"github.com/aussiebroadwan/siteauth/pkg/cryptox"
	"github.com/aussiebroadwan/siteauth/pkg/idx"
	"github.com/aussiebroadwan/siteauth/pkg/slogx"
)

// BootstrapService seeds the first administrator on an empty database.
type BootstrapService struct {
	Store     store.Store
	Passwords *cryptox.PasswordHasher
}

// EnsureAdmin creates an admin account when no users exist yet. It reports
// whether an account was created. Empty credentials skip bootstrapping.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, email, password, fullName string) (bool, error) {
	l := slogx.FromContext(ctx)

	if email == "" || password == "" {
		return false, nil
	}

	// 1. Only ever seed an empty store
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, fmt.Errorf("check users: %w", err)
	}
	if !empty {
		return false, nil
	}

	// 2. Hash password
	hash, err := s.Passwords.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	// 3. Create admin user
	now := time.Now().UTC()
	admin := domain.User{
		ID:           idx.New().String(),
		Email:        domain.NormalizeEmail(email),
		PasswordHash: hash,
		FullName:     fullName,
		Role:         domain.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin user: %w", err)
	}

	l.Info("bootstrapped admin user", slog.String("admin_user_id", admin.ID))
	return true, nil
}
