package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Terminal.InterruptWindow)
	assert.Equal(t, 500, cfg.Terminal.HistoryLimit)
	assert.Equal(t, 24, cfg.Terminal.DefaultRows)
	assert.Equal(t, 80, cfg.Terminal.DefaultCols)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TERMD_PORT", "9000")
	t.Setenv("TERMD_INTERRUPT_WINDOW", "250ms")
	t.Setenv("TERMD_HISTORY_LIMIT", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Terminal.InterruptWindow)
	assert.Equal(t, 100, cfg.Terminal.HistoryLimit)
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("TERMD_INTERRUPT_WINDOW", "not-a-duration")

	cfg := LoadOrDefault()
	assert.Equal(t, 500*time.Millisecond, cfg.Terminal.InterruptWindow)
}
