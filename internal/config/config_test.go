package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 50, cfg.HistorySize)
	assert.Equal(t, 5*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 150*time.Millisecond, cfg.IdleQuiet)
	assert.False(t, cfg.VerifyFrozen)
	assert.Equal(t, []string{"localhost:5173", "localhost:3000"}, cfg.Origins())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HISTORY_SIZE", "10")
	t.Setenv("IDLE_QUIET", "1s")
	t.Setenv("ALLOWED_ORIGINS", " example.com , ,*.wp.test")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("VERIFY_FROZEN_STATE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.HistorySize)
	assert.Equal(t, time.Second, cfg.IdleQuiet)
	assert.Equal(t, []string{"example.com", "*.wp.test"}, cfg.Origins())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.True(t, cfg.VerifyFrozen)

	t.Setenv("HISTORY_SIZE", "lots")
	_, err = Load()
	assert.Error(t, err)
}
