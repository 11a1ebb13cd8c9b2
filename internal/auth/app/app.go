package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/siteauth/internal/auth/http"
	"github.com/aussiebroadwan/siteauth/internal/auth/service"
	"github.com/aussiebroadwan/siteauth/internal/auth/store"
	redisstore "github.com/aussiebroadwan/siteauth/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/siteauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/siteauth/pkg/cryptox"
	"github.com/aussiebroadwan/siteauth/pkg/jwtx"
	"github.com/aussiebroadwan/siteauth/pkg/otpx"
	"github.com/aussiebroadwan/siteauth/pkg/slogx"
	goredis "github.com/redis/go-redis/v9"
)

// BuildVersion is overridden at build time with -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application holds the auth service and everything it depends on.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db          *sqlite.Store
	redis       *goredis.Client
	revocations store.RevokedTokens
	attempts    store.TwoFactorAttempts

	// revocationsPinger is set only for the redis list; sqlite is covered by
	// the database check.
	revocationsPinger httpapi.Pinger

	authService         *service.AuthService
	twoFactorService    *service.TwoFactorService
	userService         *service.UserService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	verifier *jwtx.HS256Verifier
	server   *http.Server
	router   *httpapi.Router
}

// New opens storage, builds the services and the HTTP server. The first
// administrator is seeded here when ADMIN_EMAIL is set and no users exist.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initRevocations(ctx); err != nil {
		app.closeStores()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}

	if err := app.bootstrap(ctx); err != nil {
		app.closeStores()
		return nil, err
	}

	if err := app.initHTTP(); err != nil {
		app.closeStores()
		return nil, err
	}
	return app, nil
}

// Handler exposes the routed handler, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		app.closeStores()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains the server, stops background work and closes storage.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		app.db = nil
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

// initRevocations picks where the revocation list and the two-factor
// failure counters live: redis when REDIS_ADDR is set, otherwise sqlite.
func (app *Application) initRevocations(ctx context.Context) error {
	if app.cfg.Redis.Addr == "" {
		app.revocations = app.db.RevokedTokens()
		app.attempts = app.db.TwoFactorAttempts()
		app.logger.Info("refresh revocations stored in sqlite")
		return nil
	}

	client, err := redisstore.Connect(ctx, redisstore.Config{
		Addr: app.cfg.Redis.Addr,
		DB:   app.cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	revoked := redisstore.NewRevokedTokens(client)
	app.redis = client
	app.revocations = revoked
	app.revocationsPinger = revoked
	app.attempts = redisstore.NewTwoFactorAttempts(client)
	app.logger.Info("refresh revocations stored in redis", "addr", app.cfg.Redis.Addr, "db", app.cfg.Redis.DB)
	return nil
}

func (app *Application) initServices() error {
	signer, err := jwtx.NewHS256Signer([]byte(app.cfg.JWT.Secret))
	if err != nil {
		return fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.verifier = jwtx.NewHS256Verifier([]byte(app.cfg.JWT.Secret), app.cfg.JWT.Issuer)

	cipher, err := cryptox.NewSecretCipher(app.cfg.TwoFactor.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize secret cipher: %w", err)
	}

	passwords := cryptox.NewPasswordHasher(app.cfg.Passwords.BcryptCost)
	tokens := &service.TokenService{
		Signer:     signer,
		Verifier:   app.verifier,
		Issuer:     app.cfg.JWT.Issuer,
		AccessTTL:  app.cfg.JWT.AccessTTL,
		RefreshTTL: app.cfg.JWT.RefreshTTL,
		PendingTTL: app.cfg.JWT.PendingTTL,
	}

	app.authService = &service.AuthService{
		Store:       app.db,
		Passwords:   passwords,
		Tokens:      tokens,
		Revocations: app.revocations,
	}
	app.twoFactorService = &service.TwoFactorService{
		Store:             app.db,
		Cipher:            cipher,
		TOTP:              otpx.NewEngine(app.cfg.TwoFactor.Issuer),
		Tokens:            tokens,
		Attempts:          app.attempts,
		MaxFailedAttempts: app.cfg.TwoFactor.MaxFailedAttempts,
		LockoutWindow:     app.cfg.TwoFactor.LockoutWindow,
	}
	app.userService = &service.UserService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{Store: app.db, Passwords: passwords}

	app.housekeepingService = service.NewHousekeepingService(
		app.revocations,
		app.attempts,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

func (app *Application) bootstrap(ctx context.Context) error {
	ctx = slogx.WithContext(ctx, app.logger)

	created, err := app.bootstrapService.EnsureAdmin(ctx, app.cfg.Admin.Email, app.cfg.Admin.Password, app.cfg.Admin.FullName)
	if err != nil {
		return fmt.Errorf("failed to seed administrator: %w", err)
	}
	if created {
		app.logger.Info("administrator account created", "email", app.cfg.Admin.Email)
	}
	return nil
}

func (app *Application) initHTTP() error {
	trusted, err := app.cfg.TrustedProxyPrefixes()
	if err != nil {
		return fmt.Errorf("failed to parse trusted proxies: %w", err)
	}

	router := httpapi.NewRouter(app.verifier, httpapi.Options{
		BuildVersion:   BuildVersion,
		Production:     app.cfg.Production(),
		RefreshTTL:     app.cfg.JWT.RefreshTTL,
		RateLimits:     app.cfg.RateLimit.Profiles(),
		TrustedProxies: trusted,
	}, app.logger)

	router.Database = app.db
	router.Revocations = app.revocationsPinger
	router.AuthService = app.authService
	router.TwoFactorService = app.twoFactorService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
		app.redis = nil
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
		app.db = nil
	}
	return errors.Join(errs...)
}
