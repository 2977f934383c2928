package app

import (
	"errors"
	"fmt"
)

// Config holds the process-level settings for an App instance; everything
// else comes from the configuration files.
type Config struct {
	// ConfigPaths are .hcl files or directories of them.
	ConfigPaths []string

	LogFormat string
	LogLevel  string
	// Port overrides server.port when non-nil.
	Port *int
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ConfigPaths) == 0 {
		return nil, errors.New("at least one configuration path is required")
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.Port != nil && (*cfg.Port < 0 || *cfg.Port > 65535) {
		return nil, fmt.Errorf("invalid port %d", *cfg.Port)
	}
	return &cfg, nil
}
