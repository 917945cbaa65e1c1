package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the highcharts service
type Config struct {
	// Server configuration
	HTTPPort   int    `env:"PORT" envDefault:"8888"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	Production bool   `env:"PRODUCTION" envDefault:"false"`

	// Redis configuration
	Redis RedisConfig

	// Storage configuration
	Storage StorageConfig

	// Rate limiting
	Limits LimitConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"redis:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// StorageConfig holds record store configuration
type StorageConfig struct {
	// SessionTTL governs how long every analyzer session lives.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"3600s"`

	// ProbeInterval is how often the background probe re-checks Redis.
	ProbeInterval time.Duration `env:"STORAGE_PROBE_INTERVAL" envDefault:"30s"`

	// OpTimeout bounds every networked storage call.
	OpTimeout time.Duration `env:"STORAGE_OP_TIMEOUT" envDefault:"3s"`

	// SweepInterval is how often the in-memory fallback reclaims expired
	// entries. Lazy eviction on reads keeps it correct regardless.
	SweepInterval time.Duration `env:"STORAGE_SWEEP_INTERVAL" envDefault:"60s"`
}

// LimitConfig holds rate limiting and request size configuration
type LimitConfig struct {
	// Per-client requests per minute.
	CreatePerMinute  int `env:"RATE_LIMIT_CREATE" envDefault:"10"`
	GeneralPerMinute int `env:"RATE_LIMIT_GENERAL" envDefault:"60"`

	// MaxBodyBytes caps the request body size (default 100MB).
	MaxBodyBytes int64 `env:"MAX_CONTENT_LENGTH" envDefault:"104857600"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Storage.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Storage.ProbeInterval <= 0 {
		return fmt.Errorf("storage probe interval must be positive")
	}
	if c.Storage.OpTimeout <= 0 {
		return fmt.Errorf("storage operation timeout must be positive")
	}

	if c.Limits.CreatePerMinute < 1 || c.Limits.GeneralPerMinute < 1 {
		return fmt.Errorf("rate limits must be at least 1 per minute")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Mode returns the application mode string for the health endpoint
func (c *Config) Mode() string {
	if c.Production {
		return "production"
	}
	return "development"
}
