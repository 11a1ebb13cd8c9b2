package http

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/aussiebroadwan/siteauth/internal/auth/metrics"
	"github.com/aussiebroadwan/siteauth/internal/auth/service"
	"github.com/aussiebroadwan/siteauth/pkg/httpx"
	"github.com/aussiebroadwan/siteauth/pkg/jwtx"
	"github.com/aussiebroadwan/siteauth/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/aussiebroadwan/siteauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Options are the HTTP-level settings of the router.
type Options struct {
	BuildVersion string

	// Production hides internal error text and marks the refresh cookie Secure.
	Production bool

	// RefreshTTL is the Max-Age of the refresh cookie.
	RefreshTTL time.Duration

	RateLimits httpx.RateLimits

	// TrustedProxies may set X-Forwarded-For and X-Real-IP. Requests from
	// any other peer are keyed on the peer address.
	TrustedProxies []netip.Prefix
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier  jwtx.Verifier
	opts      Options
	startTime time.Time
	logger    *slog.Logger

	// Database is checked by /readyz.
	Database Pinger

	// Revocations is checked by /readyz when the revocation list lives
	// outside the database.
	Revocations Pinger

	AuthService      *service.AuthService
	TwoFactorService *service.TwoFactorService
	UserService      *service.UserService
}

func NewRouter(verifier jwtx.Verifier, opts Options, logger *slog.Logger) *Router {
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if opts.RateLimits == (httpx.RateLimits{}) {
		opts.RateLimits = httpx.DefaultRateLimits()
	}

	r := &Router{
		Mux:       http.NewServeMux(),
		verifier:  verifier,
		opts:      opts,
		startTime: time.Now(),
		logger:    logger,
	}

	// Logging is outermost so it sees the final status; metrics sits next to
	// the mux to read the matched pattern.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		metrics.Middleware,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTwoFactor()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("GET /metrics", promhttp.Handler())
	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Site Authentication Service API
//	@version		0.1.0
//	@description	Email and password authentication for the marketing CMS with optional TOTP two-factor
//	@description	verification and role-based access control.
//	@description
//	@description				Access tokens are HS256 JWTs. Refresh tokens travel in an HttpOnly cookie scoped to /auth
//	@description				and are rotated on every use.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/siteauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) errs() errorWriter {
	return errorWriter{Production: r.opts.Production}
}

func (r *Router) cookies() cookieJar {
	return cookieJar{Secure: r.opts.Production, TTL: r.opts.RefreshTTL}
}

func (r *Router) registerAuth() {
	limits := r.opts.RateLimits
	trusted := r.opts.TrustedProxies
	h := &AuthHandler{
		AuthService: r.AuthService,
		cookies:     r.cookies(),
		errs:        r.errs(),
	}

	// POST /auth/login - strict per account wherever the attempts come
	// from, moderate per client so one address cannot sweep many accounts
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(limits.Moderate, trusted...),
			httpx.RateLimitByJSONField(limits.Strict, "email"),
		),
	)

	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(limits.Strict, trusted...),
		),
	)

	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(limits.Moderate, trusted...),
		),
	)

	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(limits.Moderate, trusted...),
		),
	)

	r.Mux.Handle("GET /auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(limits.Lenient),
		),
	)

	r.Mux.Handle("POST /auth/change-password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(limits.Strict),
		),
	)
}

func (r *Router) registerTwoFactor() {
	limits := r.opts.RateLimits
	h := &TwoFactorHandler{
		AuthService:      r.AuthService,
		TwoFactorService: r.TwoFactorService,
		cookies:          r.cookies(),
		errs:             r.errs(),
	}

	// Only pending tokens reach the second login step
	r.Mux.Handle("POST /auth/verify-2fa-login",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyLogin),
			httpx.AuthnMiddleware(r.verifier, httpx.AcceptScope(jwtx.ScopeTwoFactorPending)),
			httpx.RateLimitByUser(limits.Strict),
		),
	)

	// Everything else that checks a code is strict to bound guessing. The
	// code routes are keyed on the user alone; TwoFactorService adds a
	// lockout that outlives this in-memory bucket.
	codeChecked := map[string]http.HandlerFunc{
		"POST /auth/verify-2fa":       h.HandleVerify,
		"POST /auth/2fa/disable":      h.HandleDisable,
		"POST /auth/2fa/backup-codes": h.HandleRegenerateBackupCodes,
	}
	for pattern, fn := range codeChecked {
		r.Mux.Handle(pattern,
			httpx.Chain(fn,
				httpx.AuthnMiddleware(r.verifier),
				httpx.RateLimitByUser(limits.Strict),
			),
		)
	}

	// Enrolment is for staff accounts
	r.Mux.Handle("POST /auth/2fa/setup",
		httpx.Chain(http.HandlerFunc(h.HandleSetup),
			httpx.AuthnMiddleware(r.verifier),
			RequireRole(domain.RoleContent),
			httpx.RateLimitByUser(limits.Moderate),
		),
	)
	r.Mux.Handle("POST /auth/2fa/enable",
		httpx.Chain(http.HandlerFunc(h.HandleEnable),
			httpx.AuthnMiddleware(r.verifier),
			RequireRole(domain.RoleContent),
			httpx.RateLimitByUser(limits.Strict),
		),
	)

	r.Mux.Handle("GET /auth/2fa/status",
		httpx.Chain(http.HandlerFunc(h.HandleStatus),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(limits.Lenient),
		),
	)
}

func (r *Router) registerUsers() {
	limits := r.opts.RateLimits
	h := &UsersHandler{
		UserService: r.UserService,
		errs:        r.errs(),
	}

	r.Mux.Handle("GET /users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.AuthnMiddleware(r.verifier),
			RequireOwnership(pathID),
			httpx.RateLimitByUser(limits.Moderate),
		),
	)

	adminOnly := map[string]http.HandlerFunc{
		"PATCH /users/{id}/role":   h.HandleSetRole,
		"PATCH /users/{id}/active": h.HandleSetActive,
		"DELETE /users/{id}":       h.HandleDelete,
	}
	for pattern, fn := range adminOnly {
		r.Mux.Handle(pattern,
			httpx.Chain(fn,
				httpx.AuthnMiddleware(r.verifier),
				RequireRole(domain.RoleAdmin),
				httpx.RateLimitByUser(limits.Moderate),
			),
		)
	}
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.opts.BuildVersion),
			httpx.RateLimitByIP(r.opts.RateLimits.Lenient, r.opts.TrustedProxies...),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.opts.BuildVersion, r.Database, r.Revocations),
			httpx.RateLimitByIP(r.opts.RateLimits.Lenient, r.opts.TrustedProxies...),
		),
	)
}
