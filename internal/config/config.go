package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds the tagdex service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	Integrity IntegrityConfig `yaml:"integrity"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string      `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string    `yaml:"addrs"`
	Password         string      `yaml:"password"`
	Standalone       bool        `yaml:"standalone"`
	ReadinessTimeout int         `yaml:"readiness_timeout_sec"`
	CallTimeoutMs    int         `yaml:"call_timeout_ms"`
	Retry            RetryConfig `yaml:"retry"`
}

// RetryConfig bounds retries of transient store failures.
type RetryConfig struct {
	MaxAttempts       int `yaml:"max_attempts"` // including the first call
	InitialIntervalMs int `yaml:"initial_interval_ms"`
	MaxIntervalMs     int `yaml:"max_interval_ms"`
}

// IndexConfig holds pagination, batching and visibility settings.
type IndexConfig struct {
	DefaultPageSize     int `yaml:"default_page_size"`
	MaxPageSize         int `yaml:"max_page_size"`
	MaxBatchSize        int `yaml:"max_batch_size"`
	VisibilityTimeoutMs int `yaml:"visibility_timeout_ms"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IntegrityConfig holds integrity sweep settings.
type IntegrityConfig struct {
	Schedule       string `yaml:"schedule"` // cron expression; empty disables the sweep
	GracePeriodSec int    `yaml:"grace_period_sec"`
	TimeoutSec     int    `yaml:"timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// Variables from an optional .env file are loaded first; the process environment wins.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references, then applies
// defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.CallTimeoutMs <= 0 {
		c.Database.CallTimeoutMs = 2000
	}
	if c.Database.Retry.MaxAttempts <= 0 {
		c.Database.Retry.MaxAttempts = 4
	}
	if c.Database.Retry.InitialIntervalMs <= 0 {
		c.Database.Retry.InitialIntervalMs = 50
	}
	if c.Database.Retry.MaxIntervalMs <= 0 {
		c.Database.Retry.MaxIntervalMs = 1000
	}
	if c.Index.DefaultPageSize <= 0 {
		c.Index.DefaultPageSize = 50
	}
	if c.Index.MaxPageSize <= 0 {
		c.Index.MaxPageSize = 1000
	}
	if c.Index.MaxBatchSize <= 0 {
		c.Index.MaxBatchSize = 500
	}
	if c.Index.VisibilityTimeoutMs <= 0 {
		c.Index.VisibilityTimeoutMs = 5000
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "tagdex:"
	}
	if c.Integrity.GracePeriodSec <= 0 {
		c.Integrity.GracePeriodSec = 60
	}
	if c.Integrity.TimeoutSec <= 0 {
		c.Integrity.TimeoutSec = 600
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Database.Driver {
	case "", "valkey", "redis":
		// ok
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.Index.DefaultPageSize > c.Index.MaxPageSize {
		return fmt.Errorf("index.default_page_size (%d) exceeds index.max_page_size (%d)",
			c.Index.DefaultPageSize, c.Index.MaxPageSize)
	}
	if c.Integrity.Schedule != "" {
		if _, err := cron.ParseStandard(c.Integrity.Schedule); err != nil {
			return fmt.Errorf("integrity.schedule: %w", err)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
