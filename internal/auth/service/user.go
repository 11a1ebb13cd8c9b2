package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/aussiebroadwan/siteauth/internal/auth/store"
	"github.com/aussiebroadwan/siteauth/pkg/slogx"
)

// UserService holds the admin-only account operations.
type UserService struct {
	Store store.Store
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

// SetRole changes targetID's role. Admins cannot change their own role so
// the last admin cannot lock everyone out by accident.
func (s *UserService) SetRole(ctx context.Context, actorID, targetID string, role domain.Role) (domain.User, error) {
	if !role.Valid() {
		return domain.User{}, ErrInvalidRole
	}
	if actorID == targetID {
		return domain.User{}, ErrSelfModification
	}

	if err := s.Store.Users().UpdateRole(ctx, targetID, role); err != nil {
		return domain.User{}, mapUserErr(err, "update role")
	}

	slogx.FromContext(ctx).Info("user role changed",
		slog.String("actor_id", actorID),
		slog.String("user_id", targetID),
		slog.String("role", role.String()),
	)
	return s.GetUserByID(ctx, targetID)
}

// SetActive activates or deactivates targetID. Deactivated users cannot log
// in or refresh.
func (s *UserService) SetActive(ctx context.Context, actorID, targetID string, active bool) (domain.User, error) {
	if actorID == targetID {
		return domain.User{}, ErrSelfModification
	}

	if err := s.Store.Users().UpdateActive(ctx, targetID, active); err != nil {
		return domain.User{}, mapUserErr(err, "update active")
	}

	slogx.FromContext(ctx).Info("user status changed",
		slog.String("actor_id", actorID),
		slog.String("user_id", targetID),
		slog.Bool("active", active),
	)
	return s.GetUserByID(ctx, targetID)
}

// DeleteUser removes targetID and its two-factor profile.
func (s *UserService) DeleteUser(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return ErrSelfModification
	}

	if err := s.Store.Users().DeleteUser(ctx, targetID); err != nil {
		return mapUserErr(err, "delete user")
	}

	slogx.FromContext(ctx).Info("user deleted",
		slog.String("actor_id", actorID),
		slog.String("user_id", targetID),
	)
	return nil
}

func mapUserErr(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
