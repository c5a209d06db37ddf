package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel         string        `yaml:"log_level" default:"info"`
	ScanTimeout      time.Duration `yaml:"scan_timeout" default:"10s"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout" default:"30s"`
	OperationTimeout time.Duration `yaml:"operation_timeout" default:"5s"`
	EventBuffer      int           `yaml:"event_buffer" default:"128"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.ScanTimeout <= 0 {
		return fmt.Errorf("scan_timeout must be > 0, got %v", c.ScanTimeout)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be > 0, got %v", c.ConnectTimeout)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("operation_timeout must be > 0, got %v", c.OperationTimeout)
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("event_buffer must be > 0, got %d", c.EventBuffer)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
