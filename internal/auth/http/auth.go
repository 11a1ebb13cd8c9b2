package http

import (
	"net/http"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/aussiebroadwan/siteauth/internal/auth/service"
	"github.com/aussiebroadwan/siteauth/pkg/authsdk"
	"github.com/aussiebroadwan/siteauth/pkg/httpx"
	"github.com/aussiebroadwan/siteauth/pkg/slogx"
)

// AuthHandler serves the password, refresh and profile endpoints.
type AuthHandler struct {
	AuthService *service.AuthService

	cookies cookieJar
	errs    errorWriter
}

// HandleRegister handles POST /auth/register
//
//	@Summary		Register
//	@Description	Creates an active account with the "user" role.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest		true	"Account details"
//	@Success		201		{object}	authsdk.RegisterResponse	"Created user"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Validation failed or email taken"
//	@Failure		500		{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := decodeRequest(r, &req); err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}

	u, err := h.AuthService.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		Message: "User registered successfully",
		User:    toUser(u),
	})
}

// HandleLogin handles POST /auth/login
//
//	@Summary		Log in
//	@Description	Checks email and password. Without two-factor the response carries an access token and the
//	@Description	refresh token is set as an HttpOnly cookie. With two-factor enabled only a short-lived pending
//	@Description	token is returned, to be exchanged at /auth/verify-2fa-login.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"Tokens, or a pending token when two-factor is required"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid email or password"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Too many attempts"
//	@Router			/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := decodeRequest(r, &req); err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}

	res, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}

	httpx.NoCache(w)
	if res.Requires2FA {
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
			Requires2FA: true,
			TempToken:   res.PendingToken,
			UserID:      res.User.ID,
		})
		return
	}

	h.cookies.Set(w, res.Tokens.RefreshToken)
	user := toUser(res.User)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		Message:     "Login successful",
		User:        &user,
		AccessToken: res.Tokens.AccessToken,
	})
}

// HandleRefresh handles POST /auth/refresh
//
//	@Summary		Refresh access token
//	@Description	Exchanges the refresh cookie (or a refreshToken in the body) for a new access token. The refresh
//	@Description	token is rotated: the presented one is revoked and a new cookie is set.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	false	"Refresh token when no cookie is sent"
//	@Success		200		{object}	authsdk.RefreshResponse	"New access token"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid, expired or reused refresh token"
//	@Router			/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token, err := refreshTokenFrom(r)
	if err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}
	if token == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "Refresh token required")
		return
	}

	_, pair, err := h.AuthService.Refresh(r.Context(), token)
	if err != nil {
		h.cookies.Clear(w)
		h.errs.WriteAuthError(w, r, err)
		return
	}

	httpx.NoCache(w)
	h.cookies.Set(w, pair.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{AccessToken: pair.AccessToken})
}

// HandleLogout handles POST /auth/logout
//
//	@Summary		Log out
//	@Description	Revokes the refresh token, if any, and clears the refresh cookie. Always succeeds.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.MessageResponse	"Logged out"
//	@Router			/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, err := refreshTokenFrom(r)
	if err != nil {
		// A malformed body still logs the browser out.
		token = ""
	}

	h.cookies.Clear(w)
	if err := h.AuthService.Logout(r.Context(), token); err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Logged out successfully"})
}

// HandleMe handles GET /auth/me
//
//	@Summary		Current user
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse	"Authenticated user"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"User no longer exists"
//	@Router			/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	u, err := h.AuthService.GetUser(r.Context(), userID)
	if err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{User: toUser(u)})
}

// HandleChangePassword handles POST /auth/change-password
//
//	@Summary		Change password
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ChangePasswordRequest	true	"Old and new password"
//	@Success		200		{object}	authsdk.MessageResponse			"Password changed"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Validation failed"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Wrong current password"
//	@Router			/auth/change-password [post].
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := httpx.UserIDFromContext(ctx)

	var req authsdk.ChangePasswordRequest
	if err := decodeRequest(r, &req); err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}

	if err := h.AuthService.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword); err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("password changed")
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Password changed successfully"})
}

// toUser is the public view of u.
func toUser(u domain.User) authsdk.User {
	return authsdk.User{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role.String(),
		IsActive:  u.IsActive,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}
