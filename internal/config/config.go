// Package config loads service settings from the environment, after an
// optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	// DatabaseURL selects the Postgres store. SQLitePath is used when it is
	// empty; with neither set the service runs on the in-memory store.
	DatabaseURL string
	SQLitePath  string

	Redis RedisConfig
	JWT   JWTConfig

	CORSAllowedOrigins []string
	StoreTimeout       time.Duration
	IdempotencyTTL     time.Duration
	DevSeed            bool

	LogLevel  slog.Level
	LogFormat string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig is empty when tokens are not verified (local development).
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// Load reads .env if present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which has the signature of
// os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(k, def string) string {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	c := Config{
		HTTPAddr:    get("HTTP_ADDR", ":8080"),
		DatabaseURL: get("DATABASE_URL", ""),
		SQLitePath:  get("SQLITE_PATH", ""),
		Redis: RedisConfig{
			Addr:     get("REDIS_ADDR", ""),
			Password: get("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:   get("JWT_HS256_SECRET", ""),
			Issuer:   get("JWT_ISSUER", ""),
			Audience: get("JWT_AUDIENCE", ""),
		},
		LogLevel:  ParseLogLevel(get("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(get("LOG_FORMAT", "json")),
	}

	var err error
	if c.Redis.DB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("REDIS_DB: %w", err)
	}
	if c.StoreTimeout, err = time.ParseDuration(get("STORE_TIMEOUT", "5s")); err != nil {
		return Config{}, fmt.Errorf("STORE_TIMEOUT: %w", err)
	}
	if c.IdempotencyTTL, err = time.ParseDuration(get("IDEMPOTENCY_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("IDEMPOTENCY_TTL: %w", err)
	}
	switch strings.ToLower(get("DEV_SEED", "")) {
	case "1", "true", "yes":
		c.DevSeed = true
	}
	for _, o := range strings.Split(get("CORS_ALLOWED_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.CORSAllowedOrigins = append(c.CORSAllowedOrigins, o)
		}
	}
	return c, nil
}

// Backend names the store the config selects.
func (c Config) Backend() string {
	switch {
	case c.DatabaseURL != "":
		return "postgres"
	case c.SQLitePath != "":
		return "sqlite"
	}
	return "memory"
}

// ParseLogLevel maps env values to a slog level, defaulting to INFO.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "ERR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds the process logger: JSON by default, text when LogFormat is "text".
func (c Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
