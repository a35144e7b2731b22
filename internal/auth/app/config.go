package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/turnstile/pkg/cachex"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
	"github.com/joho/godotenv"
)

type Config struct {
	SigningKey string        // Required: HS256 key, raw or "base64:" prefixed (min 32 bytes)
	Issuer     string        // Optional: issuer claim for tokens (default: turnstile)
	AccessTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL time.Duration // Optional: refresh token lifetime (default: 7d)

	DatabaseFile string // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	// Redis backs the token cache when Redis.Addr is set; otherwise an
	// in-process cache is used and state is lost on restart.
	Redis               cachex.RedisConfig
	MemorySweepInterval time.Duration // Optional: expiry sweep of the in-process cache (default: 1m)

	CORSAllowedOrigins []string // Optional: comma separated (default: any origin)
	TrustedProxies     []string // Optional: comma separated CIDRs or IPs allowed to set X-Forwarded-For (default: none)

	BootstrapAdminUsername string // Optional: seeds the first admin on an empty store
	BootstrapAdminPassword string
	BootstrapAdminEmail    string

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	RateLimits httpx.RateLimitProfiles
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() Config {
	_ = godotenv.Load()

	redis := cachex.DefaultRedisConfig()
	redis.Addr = os.Getenv("REDIS_ADDR")
	redis.Password = os.Getenv("REDIS_PASSWORD")
	redis.DB = getEnvIntOrDefault("REDIS_DB", redis.DB)
	redis.Prefix = getEnvOrDefault("REDIS_PREFIX", redis.Prefix)
	redis.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", redis.PoolSize)
	redis.DialTimeout = getEnvDurationOrDefault("REDIS_DIAL_TIMEOUT", redis.DialTimeout)

	return Config{
		SigningKey: os.Getenv("AUTH_SIGNING_KEY"),
		Issuer:     getEnvOrDefault("AUTH_ISSUER", "turnstile"),
		AccessTTL:  time.Duration(getEnvIntOrDefault("AUTH_ACCESS_TTL_MINUTES", 15)) * time.Minute,
		RefreshTTL: time.Duration(getEnvIntOrDefault("AUTH_REFRESH_TTL_DAYS", 7)) * 24 * time.Hour,

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		Redis:               redis,
		MemorySweepInterval: getEnvDurationOrDefault("MEMORY_CACHE_SWEEP_INTERVAL", time.Minute),

		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		TrustedProxies:     splitList(os.Getenv("TRUSTED_PROXIES")),

		BootstrapAdminUsername: os.Getenv("BOOTSTRAP_ADMIN_USERNAME"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		RateLimits: httpx.DefaultRateLimitProfiles().WithEnv(os.Getenv),
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if _, err := decodeSigningKey(c.SigningKey); err != nil {
		errs = append(errs, fmt.Errorf("AUTH_SIGNING_KEY: %w", err))
	}
	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TTL_MINUTES must be positive"))
	}
	if c.RefreshTTL <= c.AccessTTL {
		errs = append(errs, errors.New("AUTH_REFRESH_TTL_DAYS must outlast the access token"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	if (c.BootstrapAdminUsername == "") != (c.BootstrapAdminPassword == "") {
		errs = append(errs, errors.New("BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD must be set together"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
