package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	c, err := FromLookup(lookup(nil))
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "memory", c.Backend())
	assert.Equal(t, 5*time.Second, c.StoreTimeout)
	assert.Equal(t, 24*time.Hour, c.IdempotencyTTL)
	assert.Equal(t, slog.LevelInfo, c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
	assert.False(t, c.DevSeed)
	assert.Empty(t, c.CORSAllowedOrigins)
}

func TestOverrides(t *testing.T) {
	c, err := FromLookup(lookup(map[string]string{
		"HTTP_ADDR":            ":9090",
		"SQLITE_PATH":          "/tmp/supaspend.db",
		"REDIS_ADDR":           "localhost:6379",
		"REDIS_DB":             "2",
		"JWT_HS256_SECRET":     " s3cret ",
		"JWT_ISSUER":           "supaspend",
		"CORS_ALLOWED_ORIGINS": "http://localhost:3000, https://app.example.com ,",
		"STORE_TIMEOUT":        "750ms",
		"IDEMPOTENCY_TTL":      "1h",
		"DEV_SEED":             "Yes",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "TEXT",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.HTTPAddr)
	assert.Equal(t, "sqlite", c.Backend())
	assert.Equal(t, 2, c.Redis.DB)
	assert.Equal(t, "s3cret", c.JWT.Secret)
	assert.Equal(t, "supaspend", c.JWT.Issuer)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, c.CORSAllowedOrigins)
	assert.Equal(t, 750*time.Millisecond, c.StoreTimeout)
	assert.Equal(t, time.Hour, c.IdempotencyTTL)
	assert.True(t, c.DevSeed)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)

	c, err = FromLookup(lookup(map[string]string{"DATABASE_URL": "postgres://x", "SQLITE_PATH": "a.db"}))
	require.NoError(t, err)
	assert.Equal(t, "postgres", c.Backend())
}

func TestInvalidValues(t *testing.T) {
	for k, v := range map[string]string{"REDIS_DB": "one", "STORE_TIMEOUT": "5", "IDEMPOTENCY_TTL": "soon"} {
		_, err := FromLookup(lookup(map[string]string{k: v}))
		assert.ErrorContains(t, err, k)
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("err"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("verbose"))
}
