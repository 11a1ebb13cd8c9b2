package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"sync"
)

// Session is an authenticated session. A request rejected for its access
// token is retried once after refreshing through the refresh cookie.
type Session struct {
	client *SDKClient

	mu          sync.RWMutex
	accessToken string
	user        User
}

func newSession(client *SDKClient, accessToken string, user User) *Session {
	return &Session{client: client, accessToken: accessToken, user: user}
}

// NewSessionFromToken wraps an existing access token.
func (c *SDKClient) NewSessionFromToken(accessToken string) *Session {
	return newSession(c, accessToken, User{})
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// User returns the user the session was created for, as reported at login.
func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Refresh rotates the refresh cookie and replaces the access token.
func (s *Session) Refresh(ctx context.Context) error {
	out, err := s.client.Refresh(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = out.AccessToken
	s.mu.Unlock()
	return nil
}

// Logout revokes the refresh token and drops the access token.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.client.Logout(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = ""
	s.mu.Unlock()
	return nil
}

// Me returns the authenticated user.
func (s *Session) Me(ctx context.Context) (*User, error) {
	var out UserResponse
	if err := s.call(ctx, http.MethodGet, "/auth/me", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// ChangePassword replaces the password after checking the old one.
func (s *Session) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	req := ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	var out MessageResponse
	return s.call(ctx, http.MethodPost, "/auth/change-password", req, &out, http.StatusOK)
}

// VerifyTwoFactor is a step-up check for an already logged-in user.
func (s *Session) VerifyTwoFactor(ctx context.Context, code string, useBackupCode bool) error {
	req := TwoFactorCodeRequest{Token: code, UseBackupCode: useBackupCode}
	var out TwoFactorResultResponse
	return s.call(ctx, http.MethodPost, "/auth/verify-2fa", req, &out, http.StatusOK)
}

// SetupTwoFactor generates a new TOTP secret for the user.
func (s *Session) SetupTwoFactor(ctx context.Context) (*TwoFactorSetupResponse, error) {
	var out TwoFactorSetupResponse
	if err := s.call(ctx, http.MethodPost, "/auth/2fa/setup", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnableTwoFactor confirms setup and returns the backup codes.
func (s *Session) EnableTwoFactor(ctx context.Context, code string) ([]string, error) {
	var out BackupCodesResponse
	if err := s.call(ctx, http.MethodPost, "/auth/2fa/enable", TwoFactorCodeRequest{Token: code}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.BackupCodes, nil
}

// DisableTwoFactor turns two-factor off. A current TOTP code is required.
func (s *Session) DisableTwoFactor(ctx context.Context, code string) error {
	var out TwoFactorResultResponse
	return s.call(ctx, http.MethodPost, "/auth/2fa/disable", TwoFactorCodeRequest{Token: code}, &out, http.StatusOK)
}

// RegenerateBackupCodes replaces the backup-code set.
func (s *Session) RegenerateBackupCodes(ctx context.Context, code string) ([]string, error) {
	var out BackupCodesResponse
	if err := s.call(ctx, http.MethodPost, "/auth/2fa/backup-codes", TwoFactorCodeRequest{Token: code}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.BackupCodes, nil
}

// TwoFactorStatus reports whether two-factor is on and how many backup
// codes are left.
func (s *Session) TwoFactorStatus(ctx context.Context) (*TwoFactorStatusResponse, error) {
	var out TwoFactorStatusResponse
	if err := s.call(ctx, http.MethodGet, "/auth/2fa/status", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser fetches a user. Non-admins may only fetch themselves.
func (s *Session) GetUser(ctx context.Context, id string) (*User, error) {
	var out UserResponse
	if err := s.call(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// SetUserRole changes a user's role (admin only).
func (s *Session) SetUserRole(ctx context.Context, id, role string) (*User, error) {
	var out UserResponse
	path := "/users/" + url.PathEscape(id) + "/role"
	if err := s.call(ctx, http.MethodPatch, path, UpdateRoleRequest{Role: role}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// SetUserActive activates or deactivates a user (admin only).
func (s *Session) SetUserActive(ctx context.Context, id string, active bool) (*User, error) {
	var out UserResponse
	path := "/users/" + url.PathEscape(id) + "/active"
	if err := s.call(ctx, http.MethodPatch, path, UpdateActiveRequest{IsActive: &active}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// DeleteUser removes a user (admin only).
func (s *Session) DeleteUser(ctx context.Context, id string) error {
	resp, err := s.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) call(ctx context.Context, method, path string, body, target any, expectedStatus int) error {
	resp, err := s.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeJSON(resp, target, expectedStatus)
}

// do sends an authenticated request. Only a 401 carrying a bearer challenge
// triggers the refresh; a wrong two-factor code is also a 401 but must not be
// replayed.
func (s *Session) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token := s.AccessToken()
	if token == "" {
		return nil, ErrNoSession
	}

	resp, err := s.client.doJSON(ctx, method, path, token, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || resp.Header.Get("WWW-Authenticate") == "" {
		return resp, nil
	}

	if s.Refresh(ctx) != nil {
		return resp, nil
	}
	_ = resp.Body.Close()

	return s.client.doJSON(ctx, method, path, s.AccessToken(), body)
}
