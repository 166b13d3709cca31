// Package config handles application configuration via environment variables.
// It uses kelseyhightower/envconfig for parsing and provides sensible defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store modes.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Scoring modes.
const (
	ScoringLocal  = "local"
	ScoringRemote = "remote"
)

// Config holds all application configuration.
// Values are loaded from environment variables with the prefix "APP".
// Example: APP_PORT=8080, APP_LOG_LEVEL=debug
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Store     StoreConfig
	Log       LogConfig
	Auth      AuthConfig
	Scoring   ScoringConfig
	Gemini    GeminiConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Realtime  RealtimeConfig
	CORS      CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// Host is the HTTP server host (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// ReadTimeout is the maximum duration for reading the entire request (default: 10s)
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`

	// WriteTimeout bounds response writes. The analyze stream and scored
	// submissions wait on the judge, so keep it above the scoring timeout.
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"90s"`

	// ShutdownTimeout is the maximum duration to wait for active connections to finish (default: 30s)
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// MaxBodyBytes caps request bodies (default: 256KiB). Zero disables the cap.
	MaxBodyBytes int64 `envconfig:"MAX_BODY_BYTES" default:"262144"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"scholarduel"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`

	// AutoMigrate applies embedded migrations on startup (default: true)
	AutoMigrate bool `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// StoreConfig selects the duel store.
type StoreConfig struct {
	// Mode is postgres or memory (default: postgres)
	Mode string `envconfig:"STORE" default:"postgres"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is the log level: debug, info, warn, error (default: info)
	Level string `envconfig:"LOG_LEVEL" default:"info"`

	// Format is the log format: json, text, plain (default: json)
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	// JWTSecret signs and verifies HS256 session tokens.
	JWTSecret string        `envconfig:"JWT_SECRET"`
	Issuer    string        `envconfig:"JWT_ISSUER" default:"scholarduel"`
	TTL       time.Duration `envconfig:"JWT_TTL" default:"24h"`
}

// ScoringConfig selects how arguments are judged.
type ScoringConfig struct {
	// Mode is local (judge in process) or remote (HTTP analyze endpoint).
	Mode    string        `envconfig:"SCORING_MODE" default:"local"`
	URL     string        `envconfig:"SCORING_URL"`
	Token   string        `envconfig:"SCORING_TOKEN"`
	Timeout time.Duration `envconfig:"SCORING_TIMEOUT" default:"45s"`
}

// GeminiConfig configures the in-process judge. An empty key disables it.
type GeminiConfig struct {
	APIKey      string  `envconfig:"GEMINI_API_KEY"`
	Model       string  `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	Temperature float32 `envconfig:"GEMINI_TEMPERATURE" default:"0.2"`
}

// RedisConfig configures the shared rate limiter. An empty address selects
// the in-process limiter.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// RateLimitConfig holds per-user request budgets.
type RateLimitConfig struct {
	SubmissionsPerMinute int `envconfig:"RATE_SUBMISSIONS_PER_MINUTE" default:"6"`
	AnalyzePerMinute     int `envconfig:"RATE_ANALYZE_PER_MINUTE" default:"20"`
}

// RealtimeConfig holds websocket settings.
type RealtimeConfig struct {
	PingInterval time.Duration `envconfig:"WS_PING_INTERVAL" default:"25s"`
	WriteTimeout time.Duration `envconfig:"WS_WRITE_TIMEOUT" default:"10s"`
	SendBuffer   int           `envconfig:"WS_SEND_BUFFER" default:"32"`
}

// CORSConfig lists allowed browser origins.
type CORSConfig struct {
	Origins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// AllowAll reports whether any origin is accepted.
func (c CORSConfig) AllowAll() bool {
	for _, o := range c.Origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return len(c.Origins) == 0
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from environment variables.
// It returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	var cfg Config

	// Load each config section separately to flatten env var names
	// This allows env vars like APP_PORT instead of APP_SERVER_PORT
	sections := []struct {
		name string
		spec any
	}{
		{"server", &cfg.Server},
		{"database", &cfg.Database},
		{"store", &cfg.Store},
		{"log", &cfg.Log},
		{"auth", &cfg.Auth},
		{"scoring", &cfg.Scoring},
		{"gemini", &cfg.Gemini},
		{"redis", &cfg.Redis},
		{"rate limit", &cfg.RateLimit},
		{"realtime", &cfg.Realtime},
		{"cors", &cfg.CORS},
	}
	for _, s := range sections {
		if err := envconfig.Process("APP", s.spec); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Mode {
	case StorePostgres, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("APP_STORE: unknown mode %q", c.Store.Mode))
	}

	switch c.Scoring.Mode {
	case ScoringLocal:
	case ScoringRemote:
		if c.Scoring.URL == "" {
			errs = append(errs, errors.New("APP_SCORING_URL is required when APP_SCORING_MODE=remote"))
		}
	default:
		errs = append(errs, fmt.Errorf("APP_SCORING_MODE: unknown mode %q", c.Scoring.Mode))
	}
	if c.Scoring.Timeout <= 0 {
		errs = append(errs, errors.New("APP_SCORING_TIMEOUT must be positive"))
	}

	if c.Auth.JWTSecret == "" && c.Store.Mode != StoreMemory {
		errs = append(errs, errors.New("APP_JWT_SECRET is required"))
	}
	if c.Realtime.SendBuffer <= 0 {
		errs = append(errs, errors.New("APP_WS_SEND_BUFFER must be positive"))
	}

	return errors.Join(errs...)
}

// LoadSection fills a single section (e.g. &AuthConfig{}) from the
// environment without validating the rest of the configuration. Tools that
// need only part of the config use it.
func LoadSection(spec any) error {
	if err := envconfig.Process("APP", spec); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main.go during startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
