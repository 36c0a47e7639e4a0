package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Save backends
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Environment string
	LogLevel    slog.Level
	LogFile     string // Console log destination; empty discards

	ContentPath string // Content file, or a directory of them
	GameVersion string

	SaveBackend string
	SaveDir     string
	RedisURL    string
	SaveTTL     time.Duration // Redis only; zero keeps saves forever
	SQLiteDSN   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LogFile:     getEnv("LOG_FILE", ""),
		ContentPath: getEnv("CONTENT_PATH", "./data/content"),
		GameVersion: getEnv("GAME_VERSION", ""),
		SaveBackend: strings.ToLower(getEnv("SAVE_BACKEND", BackendFile)),
		SaveDir:     getEnv("SAVE_DIR", "./data/saves"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SQLiteDSN:   getEnv("SQLITE_DSN", "file:./data/saves.db"),
	}

	ttl, err := time.ParseDuration(getEnv("SAVE_TTL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SAVE_TTL: %w", err)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("invalid SAVE_TTL: %s is negative", ttl)
	}
	cfg.SaveTTL = ttl

	switch cfg.SaveBackend {
	case BackendFile, BackendRedis, BackendSQLite:
	default:
		return nil, fmt.Errorf("invalid SAVE_BACKEND %q: want file, redis or sqlite", cfg.SaveBackend)
	}

	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
