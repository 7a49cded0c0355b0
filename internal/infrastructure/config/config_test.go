package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Gateway.MaxApplyRetries)
	assert.Equal(t, time.Hour, cfg.Sweeper.Interval)
	assert.Equal(t, 72*time.Hour, cfg.Sweeper.FixtureRetention)
	assert.Equal(t, time.Minute, cfg.Redis.PendingTTL)
	assert.Equal(t, 24*time.Hour, cfg.Redis.ResultTTL)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
log_level: warn
server:
  port: 9090
sweeper:
  fixture_retention: 24h
database:
  url: postgres://localhost:5432/ledger
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Sweeper.FixtureRetention)
	assert.Equal(t, "postgres://localhost:5432/ledger", cfg.Database.URL)

	// Untouched sections keep their defaults.
	assert.Equal(t, 3, cfg.Gateway.MaxApplyRetries)
	assert.Equal(t, time.Hour, cfg.Sweeper.Interval)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))

	t.Setenv("ELB_SERVER_PORT", "7070")
	t.Setenv("ELB_REDIS_URL", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.URL)
}
