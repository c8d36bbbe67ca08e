// Package config provides environment-based configuration.
//
// Loads from a .env file (godotenv) if present, maps variables to the
// Config struct via go-simpler/env struct tags, and validates required
// fields.
package config

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`

	// Vote endpoint rate limit, per client IP. This is abuse protection,
	// not voter deduplication; repeat votes are allowed.
	VoteRateLimit float64 `env:"VOTE_RATE_LIMIT" default:"5"`
	VoteRateBurst int     `env:"VOTE_RATE_BURST" default:"10"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.VoteRateLimit <= 0 {
		return fmt.Errorf("VOTE_RATE_LIMIT must be positive")
	}
	if cfg.VoteRateBurst < 1 {
		return fmt.Errorf("VOTE_RATE_BURST must be at least 1")
	}
	if cfg.MaxWebSocketConnections < 1 {
		return fmt.Errorf("MAX_WEBSOCKET_CONNECTIONS must be at least 1")
	}
	return nil
}
