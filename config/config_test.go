package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.tickex.io/tickex/config"
	"code.tickex.io/tickex/logging"
)

func TestReadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := config.Read(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, config.NewDefaultConfig(), cfg)
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := config.NewDefaultConfig()
	cfg.Execution.MaxLifespan = 20
	cfg.Commission.Rate = "0.01"
	cfg.Execution.Level.Level = logging.DebugLevel
	require.NoError(t, config.Write(dir, cfg))

	got, err := config.Read(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
