// Package config loads the ambient configuration shared by every process
// mode (fox_bridge, mcap_recorder, mcap_player): logging and metrics.
// Subcommand-specific settings (record/play/convert flags) are parsed by
// each cmd/ entrypoint directly, bound onto the same flag.FlagSet via
// BindFlags — an env.Parse-then-flag.Parse sequence, split so each binary
// can layer its own subcommand flags on top.
package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the ambient settings every process mode needs.
type Config struct {
	Logging LoggingConfig `env:"LOGGING"`
	Metrics MetricsConfig `env:"METRICS"`

	ConfigFile string `env:"CONFIG_FILE"`
}

// LoggingConfig mirrors internal/logger.Config's fields with env tags.
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"json"`
	Output     string `env:"LOG_OUTPUT" envDefault:""`
	Rotation   bool   `env:"LOG_ROTATION" envDefault:"false"`
	MaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"7"`
	MaxAge     int    `env:"LOG_MAX_AGE" envDefault:"30"`
}

// MetricsConfig controls the optional Prometheus metrics HTTP listener.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Addr    string `env:"METRICS_ADDR" envDefault:":9090"`
}

// Load reads environment variables into a fresh Config. CLI flags are
// layered on afterward via BindFlags + fs.Parse, so flags take precedence
// over environment defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	return cfg, nil
}

// BindFlags registers the ambient flags onto fs, defaulting to whatever
// Load already populated from the environment.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Logging.Level, "log-level", c.Logging.Level, "log level (debug, info, warn, error)")
	fs.StringVar(&c.Logging.Format, "log-format", c.Logging.Format, "log format (json, text)")
	fs.StringVar(&c.Metrics.Addr, "metrics-addr", c.Metrics.Addr, "metrics HTTP listen address")
	fs.BoolVar(&c.Metrics.Enabled, "metrics-enabled", c.Metrics.Enabled, "serve Prometheus metrics")
}

// Validate checks the ambient configuration for obviously invalid values.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics address cannot be empty when metrics are enabled")
	}

	return nil
}
