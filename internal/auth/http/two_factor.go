package http

import (
	"net/http"

	"github.com/aussiebroadwan/siteauth/internal/auth/service"
	"github.com/aussiebroadwan/siteauth/pkg/authsdk"
	"github.com/aussiebroadwan/siteauth/pkg/httpx"
)

// TwoFactorHandler serves second-factor login and the setup lifecycle.
type TwoFactorHandler struct {
	AuthService      *service.AuthService
	TwoFactorService *service.TwoFactorService

	cookies cookieJar
	errs    errorWriter
}

// HandleVerifyLogin handles POST /auth/verify-2fa-login
//
//	@Summary		Complete a two-factor login
//	@Description	Exchanges the pending token from /auth/login plus a TOTP or backup code for real tokens.
//	@Description	Only pending tokens are accepted on this route.
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TwoFactorCodeRequest	true	"TOTP or backup code"
//	@Success		200		{object}	authsdk.TwoFactorLoginResponse	"User and access token"
//	@Failure		400		{object}	authsdk.TwoFactorErrorResponse	"Two-factor not enabled or invalid request"
//	@Failure		401		{object}	authsdk.TwoFactorErrorResponse	"Invalid code or token"
//	@Failure		500		{object}	authsdk.TwoFactorErrorResponse	"Internal server error"
//	@Router			/auth/verify-2fa-login [post].
func (h *TwoFactorHandler) HandleVerifyLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := httpx.UserIDFromContext(ctx)

	var req authsdk.TwoFactorCodeRequest
	if err := decodeRequest(r, &req); err != nil {
		h.errs.WriteTwoFactorError(w, r, err)
		return
	}

	u, pair, err := h.TwoFactorService.VerifyLogin(ctx, userID, req.Token, req.UseBackupCode)
	if err != nil {
		h.errs.WriteTwoFactorError(w, r, err)
		return
	}

	httpx.NoCache(w)
	h.cookies.Set(w, pair.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TwoFactorLoginResponse{
		Success:     true,
		User:        toUser(u),
		AccessToken: pair.AccessToken,
	})
}

// HandleVerify handles POST /auth/verify-2fa
//
//	@Summary		Step-up verification
//	@Description	Checks a TOTP or backup code for an already logged-in user. No tokens are issued.
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TwoFactorCodeRequest	true	"TOTP or backup code"
//	@Success		200		{object}	authsdk.TwoFactorResultResponse	"Verified"
//	@Failure		400		{object}	authsdk.TwoFactorErrorResponse	"Two-factor not enabled or invalid request"
//	@Failure		401		{object}	authsdk.TwoFactorErrorResponse	"Invalid code or token"
//	@Router			/auth/verify-2fa [post].
func (h *TwoFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := httpx.UserIDFromContext(ctx)

	var req authsdk.TwoFactorCodeRequest
	if err := decodeRequest(r, &req); err != nil {
		h.errs.WriteTwoFactorError(w, r, err)
		return
	}

	if err := h.TwoFactorService.Verify(ctx, userID, req.Token, req.UseBackupCode); err != nil {
		h.errs.WriteTwoFactorError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TwoFactorResultResponse{
		Success: true,
		Message: "Two-factor code verified",
	})
}

// HandleSetup handles POST /auth/2fa/setup
//
//	@Summary		Start two-factor setup
//	@Description	Generates a TOTP secret. Two-factor stays disabled until /auth/2fa/enable confirms a code.
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.TwoFactorSetupResponse	"Secret and otpauth URL (shown once)"
//	@Failure		400	{object}	authsdk.TwoFactorErrorResponse	"Already enabled"
//	@Failure		401	{object}	authsdk.ErrorResponse			"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ForbiddenResponse		"Role below content"
//	@Router			/auth/2fa/setup [post].
func (h *TwoFactorHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := httpx.UserIDFromContext(ctx)

	u, err := h.AuthService.GetUser(ctx, userID)
	if err != nil {
		h.errs.WriteTwoFactorError(w, r, err)
		return
	}

	setup, err := h.TwoFactorService.Setup(ctx, u)
	if err != nil {
		h.errs.WriteTwoFactorError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TwoFactorSetupResponse{
		Secret:     setup.Secret,
		OTPAuthURL: setup.OTPAuthURL,
	})
}

// HandleEnable handles POST /auth/2fa/enable
//
//	@Summary		Enable two-factor
//	@Description	Confirms setup with a TOTP code and returns backup codes. They are never shown again.
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TwoFactorCodeRequest	true	"TOTP code"
//	@Success		200		{object}	authsdk.BackupCodesResponse		"Backup codes (shown once)"
//	@Failure		400		{object}	authsdk.TwoFactorErrorResponse	"Setup not started or already enabled"
//	@Failure		401		{object}	authsdk.TwoFactorErrorResponse	"Invalid code"
//	@Failure		403		{object}	authsdk.ForbiddenResponse		"Role below content"
//	@Router			/auth/2fa/enable [post].
func (h *TwoFactorHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := httpx.UserIDFromContext(ctx)

	var req authsdk.TwoFactorCodeRequest
	if err := decodeRequest(r, &req); err != nil {
		h.errs.WriteTwoFactorError(w, r, err)
		return
	}

	codes, err := h.TwoFactorService.Enable(ctx, userID, req.Token)
	if err != nil {
		h.errs.WriteTwoFactorError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{Success: true, BackupCodes: codes})
}

// HandleDisable handles POST /auth/2fa/disable
//
//	@Summary		Disable two-factor
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TwoFactorCodeRequest	true	"TOTP code"
//	@Success		200		{object}	authsdk.TwoFactorResultResponse	"Disabled"
//	@Failure		400		{object}	authsdk.TwoFactorErrorResponse	"Not enabled"
//	@Failure		401		{object}	authsdk.TwoFactorErrorResponse	"Invalid code"
//	@Router			/auth/2fa/disable [post].
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := httpx.UserIDFromContext(ctx)

	var req authsdk.TwoFactorCodeRequest
	if err := decodeRequest(r, &req); err != nil {
		h.errs.WriteTwoFactorError(w, r, err)
		return
	}

	if err := h.TwoFactorService.Disable(ctx, userID, req.Token); err != nil {
		h.errs.WriteTwoFactorError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TwoFactorResultResponse{
		Success: true,
		Message: "Two-factor authentication disabled",
	})
}

// HandleRegenerateBackupCodes handles POST /auth/2fa/backup-codes
//
//	@Summary		Regenerate backup codes
//	@Description	Replaces the whole backup-code set. Requires a TOTP code.
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TwoFactorCodeRequest	true	"TOTP code"
//	@Success		200		{object}	authsdk.BackupCodesResponse		"New backup codes (shown once)"
//	@Failure		400		{object}	authsdk.TwoFactorErrorResponse	"Not enabled"
//	@Failure		401		{object}	authsdk.TwoFactorErrorResponse	"Invalid code"
//	@Router			/auth/2fa/backup-codes [post].
func (h *TwoFactorHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := httpx.UserIDFromContext(ctx)

	var req authsdk.TwoFactorCodeRequest
	if err := decodeRequest(r, &req); err != nil {
		h.errs.WriteTwoFactorError(w, r, err)
		return
	}

	codes, err := h.TwoFactorService.RegenerateBackupCodes(ctx, userID, req.Token)
	if err != nil {
		h.errs.WriteTwoFactorError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{Success: true, BackupCodes: codes})
}

// HandleStatus handles GET /auth/2fa/status
//
//	@Summary		Two-factor status
//	@Tags			Two-Factor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.TwoFactorStatusResponse	"Enabled flag and remaining backup codes"
//	@Failure		401	{object}	authsdk.ErrorResponse			"Invalid or missing access token"
//	@Router			/auth/2fa/status [get].
func (h *TwoFactorHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := httpx.UserIDFromContext(ctx)

	status, err := h.TwoFactorService.Status(ctx, userID)
	if err != nil {
		h.errs.WriteTwoFactorError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TwoFactorStatusResponse{
		Enabled:              status.Enabled,
		BackupCodesRemaining: status.BackupCodesRemaining,
	})
}
