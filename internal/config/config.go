package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Loyalty      LoyaltyConfig
	Payment      PaymentConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines session and credential parameters.
type AuthConfig struct {
	SessionSecret        string
	SessionTTLMinutes    int
	CookieName           string
	CookieSecure         bool
	ResetTokenTTLMinutes int
	LoginRateLimit       int
}

// NotificationConfig selects how realtime notifications reach connections.
type NotificationConfig struct {
	Fanout       string
	RedisChannel string
	EmailFrom    string
}

// LoyaltyConfig holds the point redemption policy.
type LoyaltyConfig struct {
	RedeemPolicy string
}

// PaymentConfig configures the mocked gateway webhook.
type PaymentConfig struct {
	WebhookSecret string
}

const (
	FanoutLocal = "local"
	FanoutRedis = "redis"

	RedeemPolicyFull         = "full"
	RedeemPolicyProportional = "proportional"

	devSessionSecret = "dev-session-secret"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "pizzeria"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            getEnv("DATABASE_URL", os.Getenv("POSTGRES_DSN")),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			SessionSecret:        os.Getenv("SESSION_SECRET"),
			SessionTTLMinutes:    getEnvAsInt("SESSION_TTL_MINUTES", 7*24*60),
			CookieName:           getEnv("SESSION_COOKIE_NAME", "pizza_session"),
			CookieSecure:         getEnvAsBool("SESSION_COOKIE_SECURE", false),
			ResetTokenTTLMinutes: getEnvAsInt("RESET_TOKEN_TTL_MINUTES", 60),
			LoginRateLimit:       getEnvAsInt("LOGIN_RATE_LIMIT_PER_MINUTE", 20),
		},
		Notification: NotificationConfig{
			Fanout:       strings.ToLower(getEnv("NOTIFY_FANOUT", FanoutLocal)),
			RedisChannel: getEnv("NOTIFY_REDIS_CHANNEL", "pizzeria:notifications"),
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "noreply@pizzeria.local"),
		},
		Loyalty: LoyaltyConfig{
			RedeemPolicy: strings.ToLower(getEnv("LOYALTY_REDEEM_POLICY", RedeemPolicyFull)),
		},
		Payment: PaymentConfig{
			WebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.App.IsProduction() {
		if c.Postgres.DSN == "" {
			return errors.New("DATABASE_URL is required in production")
		}
		if c.Auth.SessionSecret == "" {
			return errors.New("SESSION_SECRET is required in production")
		}
		if c.Payment.WebhookSecret == "" {
			return errors.New("PAYMENT_WEBHOOK_SECRET is required in production")
		}
	}
	if c.Auth.SessionSecret == "" {
		c.Auth.SessionSecret = devSessionSecret
	}
	switch c.Notification.Fanout {
	case FanoutLocal, FanoutRedis:
	default:
		return fmt.Errorf("invalid NOTIFY_FANOUT %q", c.Notification.Fanout)
	}
	if c.Notification.Fanout == FanoutRedis && c.Redis.Addr == "" {
		return errors.New("NOTIFY_FANOUT=redis requires REDIS_ADDR")
	}
	switch c.Loyalty.RedeemPolicy {
	case RedeemPolicyFull, RedeemPolicyProportional:
	default:
		return fmt.Errorf("invalid LOYALTY_REDEEM_POLICY %q", c.Loyalty.RedeemPolicy)
	}
	return nil
}

// IsProduction reports whether the app runs with production safeguards.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionTTL returns how long an issued session stays valid.
func (a AuthConfig) SessionTTL() time.Duration {
	if a.SessionTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

// ResetTokenTTL returns the password reset token lifetime.
func (a AuthConfig) ResetTokenTTL() time.Duration {
	if a.ResetTokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.ResetTokenTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
