package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/siteauth/pkg/httpx"
	"github.com/aussiebroadwan/siteauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func sign(t *testing.T, typ jwtx.TokenType, scope string, ttl time.Duration) string {
	t.Helper()
	s, err := jwtx.NewHS256Signer(secret)
	require.NoError(t, err)
	tok, err := s.Sign(jwtx.NewClaims("user-1", "a@example.com", "admin", typ, scope, "siteauth", ttl, time.Now()))
	require.NoError(t, err)
	return tok
}

func TestAuthnMiddleware(t *testing.T) {
	verifier := jwtx.NewHS256Verifier(secret, "siteauth")

	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = httpx.UserIDFromContext(r.Context())
		claims, ok := httpx.ClaimsFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "admin", claims.Role)
		w.WriteHeader(http.StatusNoContent)
	})

	full := httpx.AuthnMiddleware(verifier)(next)
	pending := httpx.AuthnMiddleware(verifier, httpx.AcceptScope(jwtx.ScopeTwoFactorPending))(next)

	tests := []struct {
		name    string
		handler http.Handler
		setup   func(*http.Request)
		want    int
	}{
		{
			name:    "missing token",
			handler: full,
			setup:   func(*http.Request) {},
			want:    http.StatusUnauthorized,
		},
		{
			name:    "non-bearer scheme",
			handler: full,
			setup:   func(r *http.Request) { r.Header.Set("Authorization", "Basic Zm9vOmJhcg==") },
			want:    http.StatusUnauthorized,
		},
		{
			name:    "valid bearer",
			handler: full,
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+sign(t, jwtx.TypeAccess, "", time.Minute))
			},
			want: http.StatusNoContent,
		},
		{
			name:    "valid cookie",
			handler: full,
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: sign(t, jwtx.TypeAccess, "", time.Minute)})
			},
			want: http.StatusNoContent,
		},
		{
			name:    "refresh token rejected",
			handler: full,
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+sign(t, jwtx.TypeRefresh, "", time.Minute))
			},
			want: http.StatusUnauthorized,
		},
		{
			name:    "expired token",
			handler: full,
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+sign(t, jwtx.TypeAccess, "", -time.Minute))
			},
			want: http.StatusUnauthorized,
		},
		{
			name:    "pending token rejected on full route",
			handler: full,
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+sign(t, jwtx.TypeAccess, jwtx.ScopeTwoFactorPending, time.Minute))
			},
			want: http.StatusUnauthorized,
		},
		{
			name:    "pending token accepted on pending route",
			handler: pending,
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+sign(t, jwtx.TypeAccess, jwtx.ScopeTwoFactorPending, time.Minute))
			},
			want: http.StatusNoContent,
		},
		{
			name:    "full token rejected on pending route",
			handler: pending,
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+sign(t, jwtx.TypeAccess, "", time.Minute))
			},
			want: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			tt.handler.ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)

			if tt.want == http.StatusUnauthorized {
				require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
				require.Contains(t, rec.Body.String(), `"error"`)
				require.Empty(t, gotUser)
			} else {
				require.Equal(t, "user-1", gotUser)
			}
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("outer"), mw("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Email string `json:"email"`
	}

	t.Run("decodes", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@example.com"}`))
		require.NoError(t, httpx.DecodeJSON(req, &b))
		require.Equal(t, "a@example.com", b.Email)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a","admin":true}`))
		require.Error(t, httpx.DecodeJSON(req, &b))
	})

	t.Run("empty body is allowed", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		require.NoError(t, httpx.DecodeJSON(req, &b))
	})
}
