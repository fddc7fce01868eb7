package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 40, cfg.Wire.MinLatencyMs)
	assert.Equal(t, 300, cfg.Wire.MaxLatencyMs)
	assert.Equal(t, 10, cfg.Feed.DefaultPageSize)
	assert.Equal(t, 100, cfg.Feed.MaxPageSize)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FEEDSYNC_SERVER_PORT", "9999")
	t.Setenv("FEEDSYNC_FEED_DEFAULT_PAGE_SIZE", "25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Feed.DefaultPageSize)
}

func TestLoadRejectsInvalidLatencyBand(t *testing.T) {
	t.Setenv("FEEDSYNC_WIRE_MAX_LATENCY_MS", "10")

	_, err := Load()
	assert.ErrorIs(t, err, ErrLatencyBand)
}
