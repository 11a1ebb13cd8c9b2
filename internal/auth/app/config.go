package app

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/aussiebroadwan/siteauth/pkg/httpx"
	"github.com/sethvargo/go-envconfig"
)

// minJWTSecretLen is the shortest HS256 secret accepted.
const minJWTSecretLen = 32

// Config is read once from the environment and handed to New.
type Config struct {
	Port                 int           `env:"PORT, default=8080"`
	Env                  string        `env:"ENV, default=dev"`
	LogLevel             string        `env:"LOG_LEVEL, default=info"`
	LogFormat            string        `env:"LOG_FORMAT, default=json"`
	DatabaseFile         string        `env:"AUTH_DATABASE_FILE, default=auth.db"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD, default=10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL, default=1h"`

	// TrustedProxies lists the CIDRs or addresses of reverse proxies whose
	// X-Forwarded-For and X-Real-IP headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	JWT       JWTConfig
	TwoFactor TwoFactorConfig
	Passwords PasswordConfig
	Redis     RedisConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
}

type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET"`
	Issuer     string        `env:"JWT_ISSUER, default=siteauth"`
	AccessTTL  time.Duration `env:"ACCESS_TOKEN_TTL, default=15m"`
	RefreshTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=720h"`
	PendingTTL time.Duration `env:"PENDING_TOKEN_TTL, default=5m"`
}

type TwoFactorConfig struct {
	EncryptionKey string `env:"TWO_FACTOR_ENCRYPTION_KEY"`
	Issuer        string `env:"TWO_FACTOR_ISSUER, default=Marketing CMS"`

	// MaxFailedAttempts wrong codes lock the account's code checks until
	// LockoutWindow has passed since the first of them.
	MaxFailedAttempts int           `env:"TWO_FACTOR_MAX_ATTEMPTS, default=5"`
	LockoutWindow     time.Duration `env:"TWO_FACTOR_LOCKOUT_WINDOW, default=15m"`
}

type PasswordConfig struct {
	BcryptCost int `env:"BCRYPT_COST, default=12"`
}

// RedisConfig moves the revocation list and the two-factor failure
// counters to redis when Addr is set.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// AdminConfig seeds the first administrator on an empty database.
type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
	FullName string `env:"ADMIN_FULL_NAME, default=Administrator"`
}

type RateLimitConfig struct {
	StrictRequests   int           `env:"RATELIMIT_STRICT_REQUESTS, default=5"`
	StrictWindow     time.Duration `env:"RATELIMIT_STRICT_WINDOW, default=1m"`
	StrictBurst      int           `env:"RATELIMIT_STRICT_BURST, default=5"`
	ModerateRequests int           `env:"RATELIMIT_MODERATE_REQUESTS, default=20"`
	ModerateWindow   time.Duration `env:"RATELIMIT_MODERATE_WINDOW, default=1m"`
	ModerateBurst    int           `env:"RATELIMIT_MODERATE_BURST, default=20"`
	LenientRequests  int           `env:"RATELIMIT_LENIENT_REQUESTS, default=100"`
	LenientWindow    time.Duration `env:"RATELIMIT_LENIENT_WINDOW, default=1m"`
	LenientBurst     int           `env:"RATELIMIT_LENIENT_BURST, default=100"`
}

// Profiles converts the flat settings into router profiles.
func (c RateLimitConfig) Profiles() httpx.RateLimits {
	return httpx.RateLimits{
		Strict:   httpx.RateLimitConfig{RequestsPerWindow: c.StrictRequests, Window: c.StrictWindow, Burst: c.StrictBurst},
		Moderate: httpx.RateLimitConfig{RequestsPerWindow: c.ModerateRequests, Window: c.ModerateWindow, Burst: c.ModerateBurst},
		Lenient:  httpx.RateLimitConfig{RequestsPerWindow: c.LenientRequests, Window: c.LenientWindow, Burst: c.LenientBurst},
	}
}

// TrustedProxyPrefixes parses TrustedProxies.
func (c Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	return httpx.ParseTrustedProxies(c.TrustedProxies)
}

// Production reports whether error details must be hidden from clients.
func (c Config) Production() bool {
	return c.Env == "production"
}

// LoadConfig reads the process environment and validates the result.
func LoadConfig(ctx context.Context) (Config, error) {
	return LoadConfigWith(ctx, envconfig.OsLookuper())
}

// LoadConfigWith reads configuration through l, which lets tests supply a map.
func LoadConfigWith(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWT.Secret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLen))
	}
	if c.TwoFactor.EncryptionKey == "" {
		errs = append(errs, errors.New("TWO_FACTOR_ENCRYPTION_KEY is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 || c.JWT.PendingTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.TwoFactor.MaxFailedAttempts <= 0 || c.TwoFactor.LockoutWindow <= 0 {
		errs = append(errs, errors.New("TWO_FACTOR_MAX_ATTEMPTS and TWO_FACTOR_LOCKOUT_WINDOW must be positive"))
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}

	limits := c.RateLimit.Profiles()
	for name, l := range map[string]httpx.RateLimitConfig{
		"STRICT":   limits.Strict,
		"MODERATE": limits.Moderate,
		"LENIENT":  limits.Lenient,
	} {
		if !l.Valid() {
			errs = append(errs, fmt.Errorf("RATELIMIT_%s_* values must be positive", name))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
