// Package config reads process configuration from the environment. A .env
// file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	DatabaseURL       string
	Store             string
	ServerPort        string
	AllowedOrigins    string
	JWTSecret         string
	OpenAIKey         string
	RedisURL          string
	DashboardCacheTTL time.Duration
	LogLevel          slog.Level
	LogFormat         string
}

// Load reads the environment. Invalid values produce an error naming the variable.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which has the signature of os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(k, def string) string {
		v, ok := lookup(k)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return def
		}
		return v
	}

	cfg := &Config{
		DatabaseURL:    get("DATABASE_URL", ""),
		Store:          strings.ToLower(get("STORE", StorePostgres)),
		ServerPort:     get("SERVER_PORT", "8080"),
		AllowedOrigins: get("ALLOWED_ORIGINS", ""),
		JWTSecret:      get("JWT_SECRET", ""),
		OpenAIKey:      get("OPENAI_API_KEY", ""),
		RedisURL:       get("REDIS_URL", ""),
		LogFormat:      strings.ToLower(get("LOG_FORMAT", "text")),
	}

	switch cfg.Store {
	case StorePostgres, StoreMemory:
	default:
		return nil, fmt.Errorf("STORE: unsupported backend %q (want postgres or memory)", cfg.Store)
	}

	ttl, err := time.ParseDuration(get("DASHBOARD_CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("DASHBOARD_CACHE_TTL: %w", err)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("DASHBOARD_CACHE_TTL: must not be negative")
	}
	cfg.DashboardCacheTTL = ttl

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("LOG_FORMAT: unsupported format %q (want text or json)", cfg.LogFormat)
	}

	return cfg, nil
}

// NewLogger builds the process logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
