package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/siteauth/pkg/jwtx"
	"github.com/aussiebroadwan/siteauth/pkg/slogx"
)

// AccessTokenCookie is read when no Authorization header is sent.
const AccessTokenCookie = "accessToken"

type authnOptions struct {
	scope string
}

// AuthnOption customises AuthnMiddleware.
type AuthnOption func(*authnOptions)

// AcceptScope makes the route accept only tokens carrying scope. Without it
// only full (unscoped) access tokens pass.
func AcceptScope(scope string) AuthnOption {
	return func(o *authnOptions) { o.scope = scope }
}

// AuthnMiddleware verifies the access token and injects its claims into the
// request context.
func AuthnMiddleware(v jwtx.Verifier, opts ...AuthnOption) Middleware {
	var o authnOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := bearerToken(r)
			if raw == "" {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("jwt verify failed", "err", err)
				return
			}

			if err := claims.ValidateExpiry(); err != nil {
				writeBearerError(w, "token expired")
				return
			}

			if claims.Type != jwtx.TypeAccess {
				writeBearerError(w, "not an access token")
				return
			}

			if claims.Scope != o.scope {
				writeBearerError(w, "token scope not accepted here")
				log.Warn("token scope rejected", "scope", claims.Scope, "want", o.scope)
				return
			}

			ctx = contextWithAuth(ctx, claims)
			ctx = slogx.WithUserID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		if !strings.HasPrefix(authz, "Bearer ") {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "Authentication required")
}
