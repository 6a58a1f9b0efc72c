// Package config loads process-level configuration from the environment.
// Per-game configuration lives in the persisted snapshot instead.
package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process environment.
type Config struct {
	// DatabasePath locates the SQLite blob store.
	DatabasePath string `env:"TAGBOT_DB" envDefault:"tagbot.db"`
	// BotUserID is the bot's own platform user ID; its posts are ignored.
	BotUserID string `env:"TAGBOT_USER_ID"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"TAGBOT_LOG_LEVEL" envDefault:"info"`
}

// FromEnv loads configuration from environment variables, reading an
// optional .env file first. A missing .env file is not an error.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps the configured log level to a slog.Level.
// Unknown values fall back to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
