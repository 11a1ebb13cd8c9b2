package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/siteauth/internal/auth/service"
	"github.com/aussiebroadwan/siteauth/pkg/authsdk"
	"github.com/aussiebroadwan/siteauth/pkg/cryptox"
	"github.com/aussiebroadwan/siteauth/pkg/httpx"
	"github.com/aussiebroadwan/siteauth/pkg/slogx"
)

const internalErrorMessage = "internal server error"

// errorWriter renders service errors. Production hides the text of
// unexpected errors.
type errorWriter struct {
	Production bool
}

// authStatus maps errors of the auth and user routes.
func authStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errValidation):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, "Invalid or expired refresh token"
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusBadRequest, "Email is already registered"
	case errors.Is(err, cryptox.ErrPasswordTooLong):
		return http.StatusBadRequest, "password must be at most 72 bytes"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrInvalidRole):
		return http.StatusBadRequest, "Invalid role"
	case errors.Is(err, service.ErrSelfModification):
		return http.StatusBadRequest, "Administrators cannot modify their own account"
	}
	return http.StatusInternalServerError, ""
}

// twoFactorStatus maps errors of the two-factor routes.
func twoFactorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errValidation):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, service.ErrTwoFactorNotEnabled):
		return http.StatusBadRequest, "Two-factor authentication is not enabled"
	case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
		return http.StatusBadRequest, "Two-factor authentication is already enabled"
	case errors.Is(err, service.ErrTwoFactorNotSetUp):
		return http.StatusBadRequest, "Two-factor setup has not been started"
	case errors.Is(err, service.ErrInvalidTOTPCode):
		return http.StatusUnauthorized, "Invalid authentication code"
	case errors.Is(err, service.ErrInvalidBackupCode):
		return http.StatusUnauthorized, "Invalid backup code"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrBackupCodeContention):
		return http.StatusConflict, "Backup codes changed concurrently, please retry"
	case errors.Is(err, service.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "Too many failed attempts, try again later"
	}
	return http.StatusInternalServerError, ""
}

// WriteAuthError writes an {error} body.
func (e errorWriter) WriteAuthError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := authStatus(err)
	if status == http.StatusInternalServerError {
		msg = e.internal(r, err)
	}
	httpx.WriteError(w, status, msg)
}

// WriteTwoFactorError writes a {success:false,message} body.
func (e errorWriter) WriteTwoFactorError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := twoFactorStatus(err)
	if status == http.StatusInternalServerError {
		msg = e.internal(r, err)
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, status, authsdk.TwoFactorErrorResponse{Success: false, Message: msg})
}

func (e errorWriter) internal(r *http.Request, err error) string {
	log := slogx.FromContext(r.Context())
	if errors.Is(err, service.ErrSecretUnreadable) {
		log.Error("stored two-factor data unreadable, check TWO_FACTOR_ENCRYPTION_KEY", slog.Any("error", err))
	} else {
		log.Error("request failed", slog.Any("error", err))
	}

	if e.Production {
		return internalErrorMessage
	}
	return err.Error()
}
