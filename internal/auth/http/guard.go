package http

import (
	"net/http"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/aussiebroadwan/siteauth/pkg/authsdk"
	"github.com/aussiebroadwan/siteauth/pkg/httpx"
	"github.com/aussiebroadwan/siteauth/pkg/slogx"
)

// RequireRole admits the request when the token's role is at least one of
// allowed. Must run after httpx.AuthnMiddleware.
func RequireRole(allowed ...domain.Role) httpx.Middleware {
	required := make([]string, len(allowed))
	for i, r := range allowed {
		required[i] = r.String()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := httpx.ClaimsFromContext(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			// An unknown role in a token ranks below everything.
			role, _ := domain.ParseRole(claims.Role)
			if !role.SatisfiesAny(allowed...) {
				slogx.FromContext(r.Context()).Warn("insufficient role",
					"role", claims.Role,
					"required", required,
				)
				httpx.WriteJSON(w, http.StatusForbidden, authsdk.ForbiddenResponse{
					Error:    "Insufficient permissions",
					Required: required,
					Actual:   claims.Role,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnership admits admins, and otherwise only the user whose id
// extract returns.
func RequireOwnership(extract func(*http.Request) string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := httpx.ClaimsFromContext(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			role, _ := domain.ParseRole(claims.Role)
			if role == domain.RoleAdmin || claims.Subject == extract(r) {
				next.ServeHTTP(w, r)
				return
			}

			httpx.WriteError(w, http.StatusForbidden, "Access denied")
		})
	}
}

// pathID extracts the {id} path value.
func pathID(r *http.Request) string {
	return r.PathValue("id")
}
