package authsdk

import "time"

// ============================================================================
// Error Responses
// ============================================================================

// ErrorResponse is the error body of the auth and user endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ForbiddenResponse is returned when the caller's role is insufficient.
type ForbiddenResponse struct {
	Error    string   `json:"error"`
	Required []string `json:"required"`
	Actual   string   `json:"actual"`
}

// TwoFactorErrorResponse is the error body of the two-factor endpoints.
type TwoFactorErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Users
// ============================================================================

// User is the public view of an account. The password hash never leaves the
// service.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"fullName"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"isActive"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	User User `json:"user"`
}

// UpdateRoleRequest is the body of PATCH /users/{id}/role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user content admin"`
}

// UpdateActiveRequest is the body of PATCH /users/{id}/active.
type UpdateActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// ============================================================================
// Authentication
// ============================================================================

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"fullName" validate:"required,max=100"`
}

// RegisterResponse is returned with 201 Created.
type RegisterResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned by POST /auth/login. When Requires2FA is true only
// TempToken and UserID are set; the refresh cookie is not issued.
type LoginResponse struct {
	Message     string `json:"message,omitempty"`
	User        *User  `json:"user,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
	Requires2FA bool   `json:"requires2FA"`
	TempToken   string `json:"tempToken,omitempty"`
	UserID      string `json:"userId,omitempty"`
}

// RefreshRequest is the optional body of POST /auth/refresh, used when the
// caller cannot hold the refresh cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RefreshResponse carries the new access token. The rotated refresh token is
// set as a cookie.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// ChangePasswordRequest is the body of POST /auth/change-password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72,nefield=OldPassword"`
}

// ============================================================================
// Two-Factor
// ============================================================================

// TwoFactorCodeRequest carries a TOTP code, or a backup code when
// UseBackupCode is set.
type TwoFactorCodeRequest struct {
	Token         string `json:"token"                   validate:"required,max=32"`
	UseBackupCode bool   `json:"useBackupCode,omitempty"`
}

// TwoFactorLoginResponse is returned by POST /auth/verify-2fa-login.
type TwoFactorLoginResponse struct {
	Success     bool   `json:"success"`
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

// TwoFactorResultResponse is returned by the step-up and disable endpoints.
type TwoFactorResultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TwoFactorSetupResponse carries the new secret. It is shown once.
type TwoFactorSetupResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

// BackupCodesResponse carries plaintext backup codes. They are shown once.
type BackupCodesResponse struct {
	Success     bool     `json:"success"`
	BackupCodes []string `json:"backupCodes"`
}

// TwoFactorStatusResponse is returned by GET /auth/2fa/status.
type TwoFactorStatusResponse struct {
	Enabled              bool `json:"enabled"`
	BackupCodesRemaining int  `json:"backupCodesRemaining"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse is returned by the liveness and readiness endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency as "ok" or an error description.
type HealthChecks struct {
	Database    string `json:"database"`
	Revocations string `json:"revocations,omitempty"`
}
