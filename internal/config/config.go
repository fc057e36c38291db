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

// Store backends accepted by TICKET_STORE_BACKEND.
const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Stripe   StripeConfig
	Event    EventConfig
	SMTP     SMTPConfig
	Admin    AdminConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Webhook  WebhookConfig
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

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// StripeConfig holds payment provider credentials and checkout settings.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
}

// EventConfig describes the event tickets are sold for.
type EventConfig struct {
	Name     string
	Price    string
	Location string
}

// SMTPConfig holds outbound email transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// AdminConfig defines the single administrator identity and session parameters.
type AdminConfig struct {
	Email           string
	PasswordHash    string
	JWTSecret       string
	TokenTTLMinutes int
	Realm           string
	TicketsLimit    int
}

// StoreConfig controls the issued ticket log.
type StoreConfig struct {
	Backend string
	Limit   int
	File    string
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

// WebhookConfig controls provider event deduplication.
type WebhookConfig struct {
	Dedupe         bool
	DedupeTTLHours int
}

// Load reads configuration from environment variables, applying defaults where possible.
// Files are loaded with godotenv first. Without explicit files the default .env is
// optional; explicitly named files must exist.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "griga-ticketing"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("PORT", getEnv("APP_PORT", "8090")),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Currency:      strings.ToLower(getEnv("STRIPE_CURRENCY", "aed")),
			SuccessURL:    os.Getenv("CHECKOUT_SUCCESS_URL"),
			CancelURL:     os.Getenv("CHECKOUT_CANCEL_URL"),
		},
		Event: EventConfig{
			Name:     getEnv("EVENT_NAME", "Murima Night Second Edition"),
			Price:    getEnv("EVENT_PRICE", "150"),
			Location: os.Getenv("EVENT_LOCATION"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("EMAIL_SMTP_HOST"),
			Port:     getEnvAsInt("EMAIL_SMTP_PORT", 587),
			User:     os.Getenv("EMAIL_SMTP_USER"),
			Password: os.Getenv("EMAIL_SMTP_PASS"),
			From:     os.Getenv("EMAIL_FROM"),
		},
		Admin: AdminConfig{
			Email:           strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
			PasswordHash:    strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),
			JWTSecret:       os.Getenv("ADMIN_JWT_SECRET"),
			TokenTTLMinutes: getEnvAsInt("ADMIN_TOKEN_TTL_MINUTES", 60),
			Realm:           getEnv("ADMIN_REALM", "GRIGA Admin"),
			TicketsLimit:    getEnvAsInt("ADMIN_TICKETS_LIMIT", 200),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("TICKET_STORE_BACKEND", StoreBackendFile)),
			Limit:   getEnvAsInt("TICKET_STORE_LIMIT", 500),
			File:    getEnv("TICKET_STORE_FILE", "data/tickets.json"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Webhook: WebhookConfig{
			Dedupe:         getEnvAsBool("WEBHOOK_DEDUPE", true),
			DedupeTTLHours: getEnvAsInt("WEBHOOK_DEDUPE_TTL_HOURS", 72),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports structural problems that make the process unable to start.
// Absent secrets are not reported here; see Missing.
func (c *Config) Validate() error {
	var errs []error

	if port, err := strconv.Atoi(c.App.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", c.App.Port))
	}
	if c.Store.Limit <= 0 {
		errs = append(errs, fmt.Errorf("TICKET_STORE_LIMIT must be positive, got %d", c.Store.Limit))
	}
	switch c.Store.Backend {
	case StoreBackendFile:
		if strings.TrimSpace(c.Store.File) == "" {
			errs = append(errs, errors.New("TICKET_STORE_FILE is required for the file backend"))
		}
	case StoreBackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres backend"))
		}
	case StoreBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown TICKET_STORE_BACKEND %q", c.Store.Backend))
	}
	if c.Admin.TokenTTLMinutes <= 0 {
		errs = append(errs, fmt.Errorf("ADMIN_TOKEN_TTL_MINUTES must be positive, got %d", c.Admin.TokenTTLMinutes))
	}
	if c.Admin.TicketsLimit <= 0 {
		errs = append(errs, fmt.Errorf("ADMIN_TICKETS_LIMIT must be positive, got %d", c.Admin.TicketsLimit))
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid EMAIL_SMTP_PORT %d", c.SMTP.Port))
	}
	if c.Webhook.Dedupe && c.Webhook.DedupeTTLHours <= 0 {
		errs = append(errs, fmt.Errorf("WEBHOOK_DEDUPE_TTL_HOURS must be positive, got %d", c.Webhook.DedupeTTLHours))
	}

	return errors.Join(errs...)
}

// Missing lists, per component, the environment variables that are absent.
// Components with missing values fail closed at request time.
func (c *Config) Missing() map[string][]string {
	missing := map[string][]string{}
	add := func(component, key, val string) {
		if strings.TrimSpace(val) == "" {
			missing[component] = append(missing[component], key)
		}
	}

	add("webhook", "STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret)
	add("checkout", "STRIPE_SECRET_KEY", c.Stripe.SecretKey)
	add("checkout", "CHECKOUT_SUCCESS_URL", c.Stripe.SuccessURL)
	add("checkout", "CHECKOUT_CANCEL_URL", c.Stripe.CancelURL)
	add("email", "EMAIL_SMTP_HOST", c.SMTP.Host)
	add("email", "EMAIL_FROM", c.SMTP.From)
	add("admin", "ADMIN_EMAIL", c.Admin.Email)
	add("admin", "ADMIN_PASSWORD_HASH", c.Admin.PasswordHash)
	add("admin", "ADMIN_JWT_SECRET", c.Admin.JWTSecret)

	return missing
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

// TokenTTL returns the admin session lifetime.
func (a AdminConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

// Configured reports whether the admin identity and token secret are all present.
func (a AdminConfig) Configured() bool {
	return a.Email != "" && a.PasswordHash != "" && a.JWTSecret != ""
}

// Configured reports whether checkout sessions can be created.
func (s StripeConfig) Configured() bool {
	return s.SecretKey != "" && s.SuccessURL != "" && s.CancelURL != ""
}

// Configured reports whether mail can be sent.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.From != ""
}

// DedupeTTL returns how long processed provider event ids are remembered.
func (w WebhookConfig) DedupeTTL() time.Duration {
	return time.Duration(w.DedupeTTLHours) * time.Hour
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
