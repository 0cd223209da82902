package config

import (
	"errors"
	"fmt"
	"time"

	"hunter_trials/internal/logger"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort    string `env:"APP_PORT" envDefault:"8080"`
	AppVersion string `env:"APP_VERSION" envDefault:"dev"`
	JWTSecret  string `env:"JWT_SECRET"`

	// Results store: at most one of the two
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	APIRateLimit         int `env:"API_RATE_LIMIT" envDefault:"120"`
	APIRateWindowSeconds int `env:"API_RATE_WINDOW_SECONDS" envDefault:"60"`
	ActionRateLimit      int `env:"ACTION_RATE_LIMIT" envDefault:"60"`
	ActionRateWindowSecs int `env:"ACTION_RATE_WINDOW_SECONDS" envDefault:"60"`

	SubmissionURL     string        `env:"SUBMISSION_URL"`
	SubmissionTimeout time.Duration `env:"SUBMISSION_TIMEOUT" envDefault:"10s"`
	SubmissionDelay   time.Duration `env:"SUBMISSION_DELAY" envDefault:"100ms"`
	EducationDelay    time.Duration `env:"EDUCATION_DELAY" envDefault:"300ms"`

	// UnlockAll opens every trial, for playtesting only
	UnlockAll     bool          `env:"UNLOCK_ALL" envDefault:"false"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"6h"`
	ContentPath   string        `env:"CONTENT_PATH"`
	PreloadAssets bool          `env:"PRELOAD_ASSETS" envDefault:"true"`
	AllowedOrigin string        `env:"ALLOWED_ORIGIN" envDefault:"*"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`
}

// APIRateWindow returns the per-IP limiter window
func (c *Config) APIRateWindow() time.Duration {
	return time.Duration(c.APIRateWindowSeconds) * time.Second
}

// ActionRateWindow returns the per-session limiter window
func (c *Config) ActionRateWindow() time.Duration {
	return time.Duration(c.ActionRateWindowSecs) * time.Second
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	if c.DatabaseURL != "" && c.SQLitePath != "" {
		errs = append(errs, errors.New("DATABASE_URL and SQLITE_PATH are mutually exclusive"))
	}
	if c.EducationDelay <= 0 {
		errs = append(errs, errors.New("EDUCATION_DELAY must be positive"))
	}
	if c.SubmissionDelay < 0 {
		errs = append(errs, errors.New("SUBMISSION_DELAY must not be negative"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.APIRateLimit <= 0 || c.APIRateWindowSeconds <= 0 {
		errs = append(errs, errors.New("API rate limit and window must be positive"))
	}
	if c.ActionRateLimit <= 0 || c.ActionRateWindowSecs <= 0 {
		errs = append(errs, errors.New("action rate limit and window must be positive"))
	}
	return errors.Join(errs...)
}

// Parse reads the environment into a Config and validates it
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}
