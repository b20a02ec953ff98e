package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("marker and skip token", func(t *testing.T) {
		t.Setenv("TRACEKIT_MARKER", "[hit]")
		t.Setenv("TRACEKIT_SKIP_TOKEN", "ts")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "[hit]", cfg.Filter.Marker)
		assert.Equal(t, "ts", cfg.Divergence.SkipToken)
	})

	t.Run("plot paths", func(t *testing.T) {
		t.Setenv("TRACEKIT_PLOT_INPUT", "/tmp/in.txt")
		t.Setenv("TRACEKIT_PLOT_OUTPUT", "/tmp/out.png")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/in.txt", cfg.Plot.Input)
		assert.Equal(t, "/tmp/out.png", cfg.Plot.Output)
	})

	t.Run("log level is lowercased", func(t *testing.T) {
		t.Setenv("TRACEKIT_LOG_LEVEL", "DEBUG")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "debug", cfg.Logging.Level)
		require.NoError(t, cfg.Validate())
	})

	t.Run("debug toggle", func(t *testing.T) {
		t.Setenv("TRACEKIT_DEBUG", "true")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.True(t, cfg.Logging.DebugMode)

		t.Setenv("TRACEKIT_DEBUG", "0")
		cfg.applyEnvOverrides()
		assert.False(t, cfg.Logging.DebugMode)
	})

	t.Run("empty values leave defaults", func(t *testing.T) {
		t.Setenv("TRACEKIT_MARKER", "")
		t.Setenv("TRACEKIT_PLOT_INPUT", "")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "[bp]:", cfg.Filter.Marker)
		assert.Equal(t, "trace.foc.txt", cfg.Plot.Input)
	})
}
