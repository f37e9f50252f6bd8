package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minSecretLength = 32

type Config struct {
	Port        string
	Environment string
	SentryDSN   string
	DatabaseURL string
	JWTSecret   string
	CronSecret  string

	TokenTTL   time.Duration
	BcryptCost int

	PageSize    int
	MaxPageSize int

	LoginRateLimitMax    int
	LoginRateLimitWindow time.Duration

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	RunMigrations bool

	RevokedTokenCleanupBatchSize int
}

type Options struct {
	LoadDotEnv bool
}

// Load reads the process environment, optionally seeded from a .env file,
// into a Config. DATABASE_URL and JWT_SECRET are required.
func Load(options Options) (*Config, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	if len(jwtSecret) < minSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength)
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("APP_ENV", "development"),
		SentryDSN:   strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		DatabaseURL: databaseURL,
		JWTSecret:   jwtSecret,
		CronSecret:  strings.TrimSpace(os.Getenv("CRON_SECRET")),

		TokenTTL:   envMinutesOrDefault("TOKEN_TTL_MINUTES", 120),
		BcryptCost: envIntOrDefault("BCRYPT_COST", 10),

		PageSize:    envIntOrDefault("PAGE_SIZE", 5),
		MaxPageSize: envIntOrDefault("PAGE_SIZE_MAX", 100),

		LoginRateLimitMax:    envIntOrDefault("LOGIN_RATE_LIMIT_MAX", 10),
		LoginRateLimitWindow: envSecondsOrDefault("LOGIN_RATE_LIMIT_WINDOW_SECONDS", 60),

		DBMaxOpenConns:    envIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:    envIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		DBConnMaxIdleTime: envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),

		RunMigrations: EnvBoolOrDefault("RUN_MIGRATIONS_ON_STARTUP", true),

		RevokedTokenCleanupBatchSize: envIntOrDefault("REVOKED_TOKEN_CLEANUP_BATCH_SIZE", 500),
	}

	if cfg.MaxPageSize < cfg.PageSize {
		cfg.MaxPageSize = cfg.PageSize
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
