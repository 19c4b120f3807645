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
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "data", cfg.Persistence.DataDir)
	assert.Empty(t, cfg.Persistence.DatabaseURL)
	assert.Equal(t, "http://localhost:5000", cfg.Agent.DefaultEndpoint)
	assert.Equal(t, 10000, cfg.Agent.RequestTimeoutMS)
	assert.Equal(t, 1500, cfg.Agent.PollIntervalMS)
	assert.Equal(t, 120, cfg.Agent.PollMaxAttempts)
	assert.Equal(t, 600, cfg.Agent.SimulationIntervalMS)
	assert.False(t, cfg.Agent.SimulationDisabled)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("NAVDECK_SERVER_PORT", "9090")
	t.Setenv("NAVDECK_SERVER_LOG_LEVEL", "debug")
	t.Setenv("NAVDECK_PERSISTENCE_DATABASE_URL", "postgres://localhost:5432/navdeck")
	t.Setenv("NAVDECK_AGENT_POLL_INTERVAL_MS", "500")
	t.Setenv("NAVDECK_AGENT_SIMULATION_DISABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "postgres://localhost:5432/navdeck", cfg.Persistence.DatabaseURL)
	assert.Equal(t, 500, cfg.Agent.PollIntervalMS)
	assert.True(t, cfg.Agent.SimulationDisabled)
}

func TestLoadValidation(t *testing.T) {
	t.Run("rejects an unknown log level", func(t *testing.T) {
		t.Setenv("NAVDECK_SERVER_LOG_LEVEL", "verbose")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("rejects an out-of-range port", func(t *testing.T) {
		t.Setenv("NAVDECK_SERVER_PORT", "70000")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("rejects a malformed database url", func(t *testing.T) {
		t.Setenv("NAVDECK_PERSISTENCE_DATABASE_URL", "not a url")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}
