// Package config provides configuration management for the ETL pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrSourceMissingFile    = errors.New("source file path is required")
	ErrNoEnabledSources     = errors.New("at least one source must be enabled")
	ErrInvalidBatchSize     = errors.New("pipeline.batch_size must be at least 1")
	ErrInvalidWorkers       = errors.New("pipeline.workers must be at least 1")
	ErrInvalidThreshold     = errors.New("pipeline.quality_threshold must be between 0 and 1")
	ErrInvalidCurrency      = errors.New("pipeline.fallback_currency must be a 3-letter code")
	ErrMissingDataDir       = errors.New("pipeline.data_dir is required")
	ErrInvalidLogLevel      = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat     = errors.New("logging.format must be 'text' or 'json'")
	ErrInvalidStaleHours    = errors.New("pipeline.mark_stale_hours must be non-negative")
	ErrInvalidCleanupDays   = errors.New("pipeline.cleanup_days must be non-negative")
	ErrMissingDatabaseCreds = errors.New("database connection settings are required")
)

// Config represents the complete pipeline configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
}

// PipelineConfig contains pipeline-specific settings.
type PipelineConfig struct {
	DataDir          string         `yaml:"data_dir"`
	Sources          []SourceConfig `yaml:"sources"`
	BatchSize        int            `yaml:"batch_size"`
	Workers          int            `yaml:"workers"`
	FallbackCurrency string         `yaml:"fallback_currency"`
	StrictValidation bool           `yaml:"strict_validation"`
	QualityThreshold float64        `yaml:"quality_threshold"`
	MarkStaleHours   int            `yaml:"mark_stale_hours"`
	CleanupDays      int            `yaml:"cleanup_days"`
}

// SourceConfig represents one raw record batch source.
type SourceConfig struct {
	File    string `yaml:"file"`
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig defines the destination store connection. A non-empty
// URL takes precedence over the discrete fields.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// Default returns a configuration with working defaults.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			DataDir:          "data",
			BatchSize:        100,
			Workers:          4,
			FallbackCurrency: "EUR",
			QualityThreshold: 0.5,
			MarkStaleHours:   24,
			CleanupDays:      30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "scrappingbot_user",
			Name:    "scrappingbot",
			SSLMode: "disable",
		},
	}
}

// LoadConfig loads configuration from a YAML file, applies environment
// overrides for the database section, and validates the result. An empty
// path yields defaults plus environment overrides.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// No .env file is fine; system env vars still apply.
		_ = err
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides database settings from environment variables.
func (c *Config) applyEnv() {
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.Host = getEnv("POSTGRES_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("POSTGRES_PORT", c.Database.Port)
	c.Database.User = getEnv("POSTGRES_USER", c.Database.User)
	c.Database.Password = getEnv("POSTGRES_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("POSTGRES_DB", c.Database.Name)
	c.Database.SSLMode = getEnv("POSTGRES_SSLMODE", c.Database.SSLMode)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Pipeline.DataDir == "" {
		return ErrMissingDataDir
	}

	for i, src := range c.Pipeline.Sources {
		if src.File == "" {
			return fmt.Errorf("%w: source[%d]", ErrSourceMissingFile, i)
		}
	}

	if c.Pipeline.BatchSize < 1 {
		return ErrInvalidBatchSize
	}

	if c.Pipeline.Workers < 1 {
		return ErrInvalidWorkers
	}

	if c.Pipeline.QualityThreshold < 0 || c.Pipeline.QualityThreshold > 1 {
		return ErrInvalidThreshold
	}

	if len(c.Pipeline.FallbackCurrency) != 3 {
		return ErrInvalidCurrency
	}

	if c.Pipeline.MarkStaleHours < 0 {
		return ErrInvalidStaleHours
	}

	if c.Pipeline.CleanupDays < 0 {
		return ErrInvalidCleanupDays
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// EnabledSources returns only enabled sources.
func (c *Config) EnabledSources() []SourceConfig {
	var enabled []SourceConfig

	for _, src := range c.Pipeline.Sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	return enabled
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// String returns a string representation of the config without secrets.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Sources: %d, BatchSize: %d, Workers: %d, DataDir: %s}",
		len(c.Pipeline.Sources),
		c.Pipeline.BatchSize,
		c.Pipeline.Workers,
		c.Pipeline.DataDir,
	)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}
