package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Store backend constants
const (
	StoreBackendDatabase = "database"
	StoreBackendMemory   = "memory"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// Session settings
	SessionSecret string
	SessionMaxAge int // seconds

	// Token signing key (RSA, PEM). When the file is empty or missing an
	// ephemeral key pair is generated at startup (development only).
	TokenPrivateKeyFile string

	// Token lifetimes
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	AuthCodeExpiration     time.Duration

	// Refresh token feature flag. When disabled no grant flow issues
	// refresh tokens regardless of scope.
	EnableRefreshTokens bool

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Store backends. Authorization codes default to the in-memory store
	// (short TTL); token metadata defaults to the relational store.
	TokenStoreBackend string // "database" or "memory"
	CodeStoreBackend  string // "database" or "memory"

	// Authorization transaction store
	TransactionTTL       time.Duration
	TransactionCacheType string // "memory" or "redis"

	// Periodic expiry sweep
	SweepInterval time.Duration

	// Metrics
	MetricsEnabled bool

	// Rate limiting (token/introspect/revoke and login routes)
	RateLimitEnabled bool
	TokenRateLimit   string // e.g. "30-M" (30 requests per minute)
	LoginRateLimit   string

	// Redis (rate limiter store and transaction cache, optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "collab-auth.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":3500"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:3500"),
		IsProduction: getEnv("NODE_ENV", getEnv("APP_ENV", "development")) == "production",

		SessionSecret: getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		SessionMaxAge: getEnvInt("SESSION_MAX_AGE", 3600),

		TokenPrivateKeyFile: getEnv("TOKEN_PRIVATE_KEY_FILE", ""),

		AccessTokenExpiration:  getEnvDuration("ACCESS_TOKEN_EXPIRATION", time.Hour),
		RefreshTokenExpiration: getEnvDuration("REFRESH_TOKEN_EXPIRATION", 720*time.Hour),
		AuthCodeExpiration:     getEnvDuration("AUTH_CODE_EXPIRATION", 10*time.Minute),
		EnableRefreshTokens:    getEnvBool("ENABLE_REFRESH_TOKENS", true),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		TokenStoreBackend: getEnv("TOKEN_STORE_BACKEND", StoreBackendDatabase),
		CodeStoreBackend:  getEnv("CODE_STORE_BACKEND", StoreBackendMemory),

		TransactionTTL:       getEnvDuration("TRANSACTION_TTL", 10*time.Minute),
		TransactionCacheType: getEnv("TRANSACTION_CACHE_TYPE", "memory"),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Hour),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", false),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		TokenRateLimit:   getEnv("TOKEN_RATE_LIMIT", "30-M"),
		LoginRateLimit:   getEnv("LOGIN_RATE_LIMIT", "10-M"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
	}
}

// Validate checks configuration combinations that cannot work at runtime.
func (c *Config) Validate() error {
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for the postgres driver")
	}
	if c.TransactionCacheType == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when TRANSACTION_CACHE_TYPE=redis")
	}
	if c.IsProduction && c.TokenPrivateKeyFile == "" {
		return fmt.Errorf("TOKEN_PRIVATE_KEY_FILE is required in production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
