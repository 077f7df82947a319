package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/household-engine/config"
	"github.com/warp/household-engine/generic"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))

	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
	assert.Equal(t, 6, cfg.Engine.WindowMonths)
	assert.Equal(t, 700*time.Millisecond, cfg.Scheduler.Debounce.Duration)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval.Duration)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	// GIVEN: A partial config file
	path := filepath.Join(t.TempDir(), "household.toml")
	content := `
[server]
port = 9090

[engine]
window_months = 12
realtime_overlay = false
location = "Europe/Paris"

[scheduler]
debounce = "2s"

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// WHEN: Loading it
	cfg, err := config.Load(path)

	// THEN: Present keys win, absent keys keep defaults
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "household.db", cfg.Server.DBPath)
	assert.Equal(t, 12, cfg.Engine.WindowMonths)
	assert.False(t, cfg.Engine.RealtimeOverlay)
	assert.Equal(t, 12, cfg.Engine.Epochs)
	assert.Equal(t, 2*time.Second, cfg.Scheduler.Debounce.Duration)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval.Duration)
	assert.Equal(t, "debug", cfg.Log.Level)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad window", "[engine]\nwindow_months = 4\n"},
		{"bad epochs", "[engine]\nepochs = 0\n"},
		{"bad zone", "[engine]\nlocation = \"Mars/Olympus\"\n"},
		{"bad duration", "[scheduler]\ninterval = \"soon\"\n"},
		{"bad toml", "[engine\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.content))
			assert.Error(t, err)
		})
	}

	_, err := config.Parse([]byte("[engine]\nwindow_months = 5\n"))
	assert.ErrorIs(t, err, generic.ErrInvalidWindow)
}
