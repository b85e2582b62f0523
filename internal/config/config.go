// Package config holds startup configuration parsed from the environment and
// typed access to runtime settings stored in the database.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"
)

// Config carries the startup parameters: where the database and schema live
// and how logging behaves. Values come from defaults, overwritten by env
// variables (a .env file is honored), overwritten by CLI flags.
type Config struct {
	DatabasePath string `env:"OPTDB_PATH"`
	SchemaPath   string `env:"OPTDB_SCHEMA"`
	LogFile      string `env:"OPTDB_LOG_FILE"`
	LogLevel     string `env:"OPTDB_LOG_LEVEL"`
}

// New returns a Config with default parameters.
func New() Config {
	return Config{
		DatabasePath: "./research.duckdb",
		SchemaPath:   "",
		LogFile:      "",
		LogLevel:     "info",
	}
}

// Load creates a new Config with default parameters, overwritten by env
// variables when specified. It returns an error if the config is invalid.
func Load() (Config, error) {
	config := New()
	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to validate config: %w", err)
	}
	return config, nil
}

// Validate checks the config for usable values.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is not set")
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
