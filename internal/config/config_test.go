package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fromchat/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "fromchat.db", cfg.SQLitePath)
	assert.Equal(t, "0.0.0.0:8000", cfg.HTTPAddr())
	assert.Equal(t, "admin", cfg.OwnerUsername)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.RememberMeTTL())
	assert.Equal(t, 30*time.Second, cfg.JanitorInterval())
	assert.Equal(t, 60*time.Second, cfg.OfflineGrace())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.BannedWords)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "oracle")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoadPostgresURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_DB", "chat")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:pw@db.internal:5433/chat?sslmode=disable", cfg.DatabaseURL)
}

func TestLoadSplitsLists(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BANNED_WORDS", "darn, heck , ,frak")
	t.Setenv("CORS_ORIGINS", "https://chat.example")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"darn", "heck", "frak"}, cfg.BannedWords)
	assert.Equal(t, []string{"https://chat.example"}, cfg.CORSOrigins)
}
