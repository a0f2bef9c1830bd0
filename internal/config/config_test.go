package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securechat/backend/internal/config"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "open", cfg.GatePassword)
	assert.Equal(t, "KV_DATA_V1", cfg.Storage.Key)
	assert.Equal(t, "gemini-3-pro-preview", cfg.AI.Model)
	assert.Equal(t, time.Second, cfg.Chat.PollInterval())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoad_TOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "securechat.toml")
	content := `
http_addr = ":9090"
language = "en"

[storage]
backend = "redis"
redis_addr = "cache:6379"

[chat]
poll_interval_ms = 250
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "cache:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.Chat.PollInterval())
	assert.Equal(t, "admin", cfg.Admin.Username, "unset keys keep their defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GATE_PASSWORD", "sesame")
	t.Setenv("API_KEY", "generic")
	t.Setenv("GEMINI_API_KEY", "specific")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://user:password@db:5432/securechat?sslmode=disable")
	t.Setenv("GEO_ENABLED", "false")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "sesame", cfg.GatePassword)
	assert.Equal(t, "specific", cfg.AI.APIKey)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Contains(t, cfg.Storage.PostgresDSN, "host=db")
	assert.Contains(t, cfg.Storage.PostgresDSN, "dbname=securechat")
	assert.False(t, cfg.Geo.Enabled)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown backend", "STORAGE_BACKEND", "floppy"},
		{"non-numeric poll", "POLL_INTERVAL_MS", "soon"},
		{"zero poll", "POLL_INTERVAL_MS", "0"},
		{"short secret", "JWT_SECRET", "short"},
		{"bad bool", "GEO_ENABLED", "perhaps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load("")
			assert.Error(t, err)
		})
	}
}
