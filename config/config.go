/*
Package config loads application configuration from the environment.

PURPOSE:
  Reads a .env file when present, then environment variables, with sane
  defaults for local development. Flags in cmd/server can still override
  port and database path.

VARIABLES:
  PORT                  HTTP port (default 8080)
  DATABASE_PATH         SQLite path (default course-engine.db, ":memory:" ok)
  LOG_LEVEL             debug|info|warn|error (default info)
  RATE_LIMIT_WINDOW     fixed window size, e.g. "1m" (default 1m)
  RATE_LIMIT_MAX        requests per window per client (default 120)
  REMINDER_SWEEP_EVERY  reminder sweep interval, e.g. "5m" (default 5m)
  CORS_ORIGINS          comma-separated allowed origins
*/
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port            int
	DatabasePath    string
	LogLevel        string
	RateLimitWindow time.Duration
	RateLimitMax    int
	SweepInterval   time.Duration
	CORSOrigins     []string
}

// Load reads configuration from .env (if present) and the environment.
func Load() *AppConfig {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded, using environment and defaults")
	}

	return &AppConfig{
		Port:            getInt("PORT", 8080),
		DatabasePath:    getEnv("DATABASE_PATH", "course-engine.db"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitMax:    getInt("RATE_LIMIT_MAX", 120),
		SweepInterval:   getDuration("REMINDER_SWEEP_EVERY", 5*time.Minute),
		CORSOrigins:     getList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer env var, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration env var, using default", "key", key, "value", v)
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// InitLogger installs a JSON slog logger at the configured level as the
// process default.
func InitLogger(levelStr string) {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
