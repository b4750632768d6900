package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the storefront SDK.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := core.NewConfig(
//	    core.WithBaseURL("https://api.example.shop/v1"),
//	    core.WithLocale("ar"),
//	)
type Config struct {
	// API configuration
	API APIConfig `yaml:"api"`

	// Redis configuration (optional persistence backend)
	Redis RedisConfig `yaml:"redis"`

	// Telemetry configuration (optional module)
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// AI chat configuration (optional module)
	AI AIConfig `yaml:"ai"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`

	// Locale preference sent as Accept-Language and persisted across reloads
	Locale string `yaml:"locale" env:"STOREFRONT_LOCALE" default:"en"`
}

// APIConfig contains backend API connection settings.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"STOREFRONT_API_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"STOREFRONT_API_TIMEOUT" default:"30s"`

	// RetryAfterDefault is the wait before the single 429 retry when the
	// server does not send a Retry-After header.
	RetryAfterDefault time.Duration `yaml:"retry_after_default" env:"STOREFRONT_API_RETRY_AFTER" default:"2s"`

	// RetryAfterMin floors the server-supplied Retry-After value.
	RetryAfterMin time.Duration `yaml:"retry_after_min" env:"STOREFRONT_API_RETRY_MIN" default:"1s"`
}

// UnmarshalYAML accepts duration fields as strings ("30s", "2s") since
// yaml.v3 has no native time.Duration decoding. Absent fields keep their
// current (default) values.
func (a *APIConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BaseURL           string `yaml:"base_url"`
		Timeout           string `yaml:"timeout"`
		RetryAfterDefault string `yaml:"retry_after_default"`
		RetryAfterMin     string `yaml:"retry_after_min"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.BaseURL != "" {
		a.BaseURL = raw.BaseURL
	}
	for _, f := range []struct {
		in  string
		out *time.Duration
	}{
		{raw.Timeout, &a.Timeout},
		{raw.RetryAfterDefault, &a.RetryAfterDefault},
		{raw.RetryAfterMin, &a.RetryAfterMin},
	} {
		if f.in == "" {
			continue
		}
		d, err := time.ParseDuration(f.in)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", f.in, ErrInvalidConfiguration)
		}
		*f.out = d
	}
	return nil
}

// RedisConfig contains the optional Redis persistence settings. When URL is
// empty the SDK falls back to the in-memory store.
type RedisConfig struct {
	URL       string `yaml:"url" env:"STOREFRONT_REDIS_URL,REDIS_URL"`
	DB        int    `yaml:"db" env:"STOREFRONT_REDIS_DB" default:"0"`
	Namespace string `yaml:"namespace" env:"STOREFRONT_REDIS_NAMESPACE" default:"storefront"`
}

// TelemetryConfig controls OpenTelemetry tracing of outgoing API calls.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" env:"STOREFRONT_TELEMETRY_ENABLED" default:"false"`
	ServiceName string `yaml:"service_name" env:"STOREFRONT_TELEMETRY_SERVICE" default:"storefront-go"`
}

// AIConfig controls the chat widget client.
type AIConfig struct {
	Enabled    bool `yaml:"enabled" env:"STOREFRONT_AI_ENABLED" default:"true"`
	MaxHistory int  `yaml:"max_history" env:"STOREFRONT_AI_MAX_HISTORY" default:"50"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"STOREFRONT_LOG_LEVEL" default:"INFO"`
	Format string `yaml:"format" env:"STOREFRONT_LOG_FORMAT"`
}

// Option is a functional option for Config
type Option func(*Config)

// NewConfig creates a Config by applying defaults, then environment
// variables, then the provided options, and finally validating the result.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := defaultConfig()
	cfg.applyEnvironment()

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Timeout:           30 * time.Second,
			RetryAfterDefault: 2 * time.Second,
			RetryAfterMin:     1 * time.Second,
		},
		Redis: RedisConfig{
			Namespace: "storefront",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "storefront-go",
		},
		AI: AIConfig{
			Enabled:    true,
			MaxHistory: 50,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Locale: "en",
	}
}

// applyEnvironment overlays environment variables onto the config
func (c *Config) applyEnvironment() {
	if v := os.Getenv("STOREFRONT_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if d, ok := envDuration("STOREFRONT_API_TIMEOUT"); ok {
		c.API.Timeout = d
	}
	if d, ok := envDuration("STOREFRONT_API_RETRY_AFTER"); ok {
		c.API.RetryAfterDefault = d
	}
	if d, ok := envDuration("STOREFRONT_API_RETRY_MIN"); ok {
		c.API.RetryAfterMin = d
	}
	if v := firstEnv("STOREFRONT_REDIS_URL", "REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("STOREFRONT_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := os.Getenv("STOREFRONT_REDIS_NAMESPACE"); v != "" {
		c.Redis.Namespace = v
	}
	if v := os.Getenv("STOREFRONT_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("STOREFRONT_TELEMETRY_SERVICE"); v != "" {
		c.Telemetry.ServiceName = v
	}
	if v := os.Getenv("STOREFRONT_AI_ENABLED"); v != "" {
		c.AI.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("STOREFRONT_AI_MAX_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.AI.MaxHistory = n
		}
	}
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToUpper(v)
	}
	if v := os.Getenv("STOREFRONT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("STOREFRONT_LOCALE"); v != "" {
		c.Locale = v
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base URL: %w", ErrMissingConfiguration)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive: %w", ErrInvalidConfiguration)
	}
	if c.Redis.DB < 0 || c.Redis.DB > 15 {
		return fmt.Errorf("redis db must be 0-15: %w", ErrInvalidConfiguration)
	}
	if c.AI.MaxHistory < 1 {
		return fmt.Errorf("ai max history must be at least 1: %w", ErrInvalidConfiguration)
	}
	return nil
}

// LoadConfigFile reads a YAML config file and overlays it onto defaults +
// environment. Functional options passed here still win over the file.
func LoadConfigFile(path string, opts ...Option) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, ErrInvalidConfiguration)
	}
	cfg.applyEnvironment()

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithBaseURL sets the backend API base URL
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.API.BaseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout sets the HTTP request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.API.Timeout = timeout
	}
}

// WithRedisURL enables Redis-backed persistence
func WithRedisURL(url string) Option {
	return func(c *Config) {
		c.Redis.URL = url
	}
}

// WithRedisNamespace sets the key namespace for Redis persistence
func WithRedisNamespace(ns string) Option {
	return func(c *Config) {
		c.Redis.Namespace = ns
	}
}

// WithTelemetry enables OpenTelemetry tracing of API calls
func WithTelemetry(enabled bool) Option {
	return func(c *Config) {
		c.Telemetry.Enabled = enabled
	}
}

// WithLocale sets the Accept-Language locale preference
func WithLocale(locale string) Option {
	return func(c *Config) {
		c.Locale = locale
	}
}

// WithLogLevel sets the log level
func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.Logging.Level = strings.ToUpper(level)
	}
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
