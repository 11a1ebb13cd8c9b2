package http

import (
	"net/http"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/aussiebroadwan/siteauth/internal/auth/service"
	"github.com/aussiebroadwan/siteauth/pkg/authsdk"
	"github.com/aussiebroadwan/siteauth/pkg/httpx"
)

// UsersHandler serves the /users/{id} endpoints.
type UsersHandler struct {
	UserService *service.UserService

	errs errorWriter
}

// HandleGet handles GET /users/{id}
//
//	@Summary		Get user
//	@Description	Admins may fetch anyone; other users only themselves.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string					true	"User ID"
//	@Success		200	{object}	authsdk.UserResponse	"User"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Not the owner"
//	@Failure		404	{object}	authsdk.ErrorResponse	"User not found"
//	@Router			/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.UserService.GetUserByID(r.Context(), pathID(r))
	if err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{User: toUser(u)})
}

// HandleSetRole handles PATCH /users/{id}/role
//
//	@Summary		Change role
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"User ID"
//	@Param			request	body		authsdk.UpdateRoleRequest	true	"New role"
//	@Success		200		{object}	authsdk.UserResponse		"Updated user"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Invalid role or own account"
//	@Failure		403		{object}	authsdk.ForbiddenResponse	"Not an admin"
//	@Failure		404		{object}	authsdk.ErrorResponse		"User not found"
//	@Router			/users/{id}/role [patch].
func (h *UsersHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, _ := httpx.UserIDFromContext(ctx)

	var req authsdk.UpdateRoleRequest
	if err := decodeRequest(r, &req); err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		h.errs.WriteAuthError(w, r, service.ErrInvalidRole)
		return
	}

	u, err := h.UserService.SetRole(ctx, actorID, pathID(r), role)
	if err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{User: toUser(u)})
}

// HandleSetActive handles PATCH /users/{id}/active
//
//	@Summary		Activate or deactivate
//	@Description	Deactivated users cannot log in or refresh.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"User ID"
//	@Param			request	body		authsdk.UpdateActiveRequest	true	"Active flag"
//	@Success		200		{object}	authsdk.UserResponse		"Updated user"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Validation failed or own account"
//	@Failure		403		{object}	authsdk.ForbiddenResponse	"Not an admin"
//	@Failure		404		{object}	authsdk.ErrorResponse		"User not found"
//	@Router			/users/{id}/active [patch].
func (h *UsersHandler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, _ := httpx.UserIDFromContext(ctx)

	var req authsdk.UpdateActiveRequest
	if err := decodeRequest(r, &req); err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}

	u, err := h.UserService.SetActive(ctx, actorID, pathID(r), *req.IsActive)
	if err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{User: toUser(u)})
}

// HandleDelete handles DELETE /users/{id}
//
//	@Summary		Delete user
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"User ID"
//	@Success		204	"Deleted"
//	@Failure		400	{object}	authsdk.ErrorResponse		"Own account"
//	@Failure		403	{object}	authsdk.ForbiddenResponse	"Not an admin"
//	@Failure		404	{object}	authsdk.ErrorResponse		"User not found"
//	@Router			/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, _ := httpx.UserIDFromContext(ctx)

	if err := h.UserService.DeleteUser(ctx, actorID, pathID(r)); err != nil {
		h.errs.WriteAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
