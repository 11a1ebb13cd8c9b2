package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/siteauth/pkg/authsdk"
)

// refreshCookiePath scopes the refresh cookie to the auth routes.
const refreshCookiePath = "/auth"

// cookieJar writes the refresh cookie.
type cookieJar struct {
	Secure bool
	TTL    time.Duration
}

func (c cookieJar) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.RefreshCookie,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(c.TTL / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c cookieJar) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.RefreshCookie,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// refreshTokenFrom prefers the cookie and falls back to the JSON body.
func refreshTokenFrom(r *http.Request) (string, error) {
	if c, err := r.Cookie(authsdk.RefreshCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}

	var req authsdk.RefreshRequest
	if err := decodeRequest(r, &req); err != nil {
		return "", err
	}
	return req.RefreshToken, nil
}
