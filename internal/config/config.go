package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"credit-coupling-api/internal/learner"
)

// Feedback store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Catalog   CatalogConfig   `json:"catalog"`
	Feedback  FeedbackConfig  `json:"feedback"`
	Spend     SpendConfig     `json:"spend"`
	Learning  LearningConfig  `json:"learning"`
	Notify    NotifyConfig    `json:"notify"`
	Tracing   TracingConfig   `json:"tracing"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Log       LogConfig       `json:"log"`
	Features  map[string]bool `json:"features"`
}

type ServerConfig struct {
	Port               string `json:"port"`
	Host               string `json:"host"`
	AllowedOrigins     string `json:"allowed_origins"`
	MaxRequestBodySize int64  `json:"max_request_body_size"`
	ShutdownTimeout    int    `json:"shutdown_timeout"` // seconds
}

// CatalogConfig points at an optional YAML catalog. Empty means the built-in offers.
type CatalogConfig struct {
	Path string `json:"path"`
}

// FeedbackConfig selects where feedback records are kept.
type FeedbackConfig struct {
	Driver string `json:"driver"`
	// Path of the SQLite file. Empty keeps the database in memory.
	Path string `json:"path"`
}

// SpendConfig controls where spend comes from and how it is cached. An empty
// File uses the built-in snapshot; an empty RedisAddr uses an in-process cache.
type SpendConfig struct {
	File          string `json:"file"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	CacheTTL      int    `json:"cache_ttl"` // seconds
}

type LearningConfig struct {
	ConfidenceLow  float64 `json:"confidence_low"`
	ConfidenceHigh float64 `json:"confidence_high"`
}

// NotifyConfig lists who hears about accepted recommendations. Team aliases are allowed.
type NotifyConfig struct {
	Recipients []string `json:"recipients"`
}

type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"`
	Environment string `json:"environment"`
}

type RateLimitConfig struct {
	Enabled bool `json:"enabled"`
	Rate    int  `json:"rate"`
	Window  int  `json:"window"` // seconds
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	th := learner.DefaultThresholds()
	return &Config{
		Server: ServerConfig{
			Port:               "8080",
			AllowedOrigins:     "*",
			MaxRequestBodySize: 1 << 20,
			ShutdownTimeout:    10,
		},
		Feedback: FeedbackConfig{Driver: DriverMemory},
		Spend:    SpendConfig{CacheTTL: 300},
		Learning: LearningConfig{ConfidenceLow: th.Low, ConfidenceHigh: th.High},
		Notify:   NotifyConfig{Recipients: []string{"operations", "finance"}},
		Tracing:  TracingConfig{Environment: "development"},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    100,
			Window:  60,
		},
		Log:      LogConfig{Level: "info", Format: "text"},
		Features: map[string]bool{},
	}
}

// LoadConfig builds the configuration from defaults, then the optional JSON
// file, then environment variables. A .env file in the working directory is
// loaded first when present; variables already set are not overwritten.
func LoadConfig(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

// applyEnv overrides cfg with every variable that is set.
func applyEnv(cfg *Config) error {
	var errs []error
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = i
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = parseBool(v)
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	setString("SERVER_PORT", &cfg.Server.Port)
	setString("SERVER_HOST", &cfg.Server.Host)
	setString("ALLOWED_ORIGINS", &cfg.Server.AllowedOrigins)
	if v := os.Getenv("MAX_REQUEST_BODY_SIZE"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_REQUEST_BODY_SIZE: %w", err))
		} else {
			cfg.Server.MaxRequestBodySize = size
		}
	}
	setInt("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	setString("CATALOG_PATH", &cfg.Catalog.Path)
	setString("FEEDBACK_DRIVER", &cfg.Feedback.Driver)
	setString("FEEDBACK_DB_PATH", &cfg.Feedback.Path)

	setString("SPEND_FILE", &cfg.Spend.File)
	setString("REDIS_ADDR", &cfg.Spend.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.Spend.RedisPassword)
	setInt("REDIS_DB", &cfg.Spend.RedisDB)
	setInt("SPEND_CACHE_TTL", &cfg.Spend.CacheTTL)

	setFloat("CONFIDENCE_LOW", &cfg.Learning.ConfidenceLow)
	setFloat("CONFIDENCE_HIGH", &cfg.Learning.ConfidenceHigh)

	if v := os.Getenv("NOTIFY_RECIPIENTS"); v != "" {
		cfg.Notify.Recipients = splitList(v)
	}

	setBool("TRACING_ENABLED", &cfg.Tracing.Enabled)
	setString("TRACING_ENDPOINT", &cfg.Tracing.Endpoint)
	setString("TRACING_ENVIRONMENT", &cfg.Tracing.Environment)

	setBool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	setInt("RATE_LIMIT_RATE", &cfg.RateLimit.Rate)
	setInt("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)

	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("LOG_FORMAT", &cfg.Log.Format)

	// FEATURES=exclusive_matching=true,spend_cache=false
	if v := os.Getenv("FEATURES"); v != "" {
		if cfg.Features == nil {
			cfg.Features = map[string]bool{}
		}
		for _, pair := range splitList(v) {
			name, value, found := strings.Cut(pair, "=")
			if !found {
				errs = append(errs, fmt.Errorf("FEATURES: %q is not name=bool", pair))
				continue
			}
			cfg.Features[strings.TrimSpace(name)] = parseBool(strings.TrimSpace(value))
		}
	}

	return errors.Join(errs...)
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Thresholds returns the learner thresholds.
func (c *Config) Thresholds() learner.Thresholds {
	return learner.Thresholds{Low: c.Learning.ConfidenceLow, High: c.Learning.ConfidenceHigh}
}

// CacheTTL returns the spend cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Spend.CacheTTL) * time.Second
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.MaxRequestBodySize <= 0 {
		return fmt.Errorf("max request body size must be positive")
	}
	switch c.Feedback.Driver {
	case DriverMemory, DriverSQLite:
	default:
		return fmt.Errorf("unknown feedback driver %q (want %s or %s)", c.Feedback.Driver, DriverMemory, DriverSQLite)
	}
	if c.Spend.CacheTTL < 0 {
		return fmt.Errorf("spend cache ttl must not be negative")
	}
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	return nil
}
