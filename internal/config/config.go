// Package config loads the CLI server settings from the environment.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the settings of `flowfsm serve` and `flowfsm run`.
type Config struct {
	Addr       string `env:"FLOWFSM_ADDR" envDefault:":8080"`
	LogLevel   string `env:"FLOWFSM_LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"FLOWFSM_LOG_FORMAT" envDefault:"text"`
	Workers    int    `env:"FLOWFSM_WORKERS" envDefault:"1"`
	CASRetries int    `env:"FLOWFSM_CAS_RETRIES" envDefault:"1"`
	Trace      bool   `env:"FLOWFSM_TRACE" envDefault:"false"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads an optional .env file from the working directory, then parses the environment.
func Load() (Config, error) {
	// the .env file might not exist and that's ok
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: FLOWFSM_WORKERS must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.CASRetries < 0 {
		return fmt.Errorf("%w: FLOWFSM_CAS_RETRIES must not be negative, got %d", ErrInvalidConfig, c.CASRetries)
	}
	return nil
}
