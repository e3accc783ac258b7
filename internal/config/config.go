// Package config provides configuration loading and validation for the service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Defaults
const (
	DefaultPort        = 8080
	DefaultBatchSize   = 100
	DefaultWorkers     = 1
	DefaultRowTimeout  = 10 * time.Second
	DefaultPhoneRegion = "US"
	DefaultLockTTL     = 5 * time.Minute
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
)

// Duration is a time.Duration that reads from JSON as "10s" or as nanoseconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(data))
	}
	*d = Duration(n)
	return nil
}

// Config holds service settings. Values come from defaults, then an optional JSON
// file, then environment variables.
type Config struct {
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	Port        int    `json:"port,omitempty"`

	// Import tuning
	BatchSize   int      `json:"batch_size,omitempty"`
	Workers     int      `json:"workers,omitempty"`     // concurrent rows per batch
	RowTimeout  Duration `json:"row_timeout,omitempty"` // per-row persistence timeout
	PhoneRegion string   `json:"phone_region,omitempty"`

	// Run lock; disabled when RedisAddress is empty
	RedisAddress string   `json:"redis_address,omitempty"`
	LockTTL      Duration `json:"lock_ttl,omitempty"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"` // json or text
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Port:        DefaultPort,
		BatchSize:   DefaultBatchSize,
		Workers:     DefaultWorkers,
		RowTimeout:  Duration(DefaultRowTimeout),
		PhoneRegion: DefaultPhoneRegion,
		LockTTL:     Duration(DefaultLockTTL),
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
	}
}

// Load builds the configuration. path may be empty, in which case only defaults
// and environment variables apply. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.DatabaseURL = getEnvString("DATABASE_URL", c.DatabaseURL)
	c.PhoneRegion = getEnvString("PHONE_REGION", c.PhoneRegion)
	c.RedisAddress = getEnvString("REDIS_ADDRESS", c.RedisAddress)
	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvString("LOG_FORMAT", c.LogFormat)

	var err error
	if c.Port, err = getEnvInt("PORT", c.Port); err != nil {
		return err
	}
	if c.BatchSize, err = getEnvInt("IMPORT_BATCH_SIZE", c.BatchSize); err != nil {
		return err
	}
	if c.Workers, err = getEnvInt("IMPORT_WORKERS", c.Workers); err != nil {
		return err
	}
	timeout, err := getEnvDuration("IMPORT_ROW_TIMEOUT", time.Duration(c.RowTimeout))
	if err != nil {
		return err
	}
	c.RowTimeout = Duration(timeout)
	ttl, err := getEnvDuration("IMPORT_LOCK_TTL", time.Duration(c.LockTTL))
	if err != nil {
		return err
	}
	c.LockTTL = Duration(ttl)
	return nil
}

// Validate checks that the configuration has valid values.
// DatabaseURL is not required here; commands that need it check it themselves.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 1 and 65535, got %d", c.Port)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("config error: 'batch_size' must be positive")
	}
	if c.Workers < 1 || c.Workers > 64 {
		return fmt.Errorf("config error: 'workers' must be between 1 and 64, got %d", c.Workers)
	}
	if c.RowTimeout <= 0 {
		return fmt.Errorf("config error: 'row_timeout' must be positive")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("config error: 'lock_ttl' must be positive")
	}
	if len(c.PhoneRegion) != 2 {
		return fmt.Errorf("config error: 'phone_region' must be a two-letter region code")
	}
	c.PhoneRegion = strings.ToUpper(c.PhoneRegion)
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("config error: 'log_format' must be json or text, got %q", c.LogFormat)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
