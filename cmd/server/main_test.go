package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/household-engine/api"
)

func TestEvolveCommand_EmptyDatabase(t *testing.T) {
	// GIVEN: No config file and an in-memory database
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"evolve",
		"--config", filepath.Join(t.TempDir(), "absent.toml"),
		"--db", ":memory:",
		"--location", "UTC",
		"--log-level", "error",
	})

	// WHEN: Running a one-shot evolution
	require.NoError(t, cmd.Execute())

	// THEN: The result is printed as JSON
	var resp api.EvolveResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp), out.String())
	assert.Zero(t, resp.Result.MonthsAnalyzed)
	assert.False(t, resp.Result.CurrentMonthNowcastReady)
	assert.NotNil(t, resp.Result.Snapshot)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	// GIVEN: A config file selecting a 12-month window and port 9090
	path := filepath.Join(t.TempDir(), "household.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9090\n[engine]\nwindow_months = 12\n"), 0o600))

	cmd := newRootCmd()

	// WHEN: Only --window is given on the command line
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--window", "3"}))
	configPath, _ := cmd.Flags().GetString("config")
	window, _ := cmd.Flags().GetInt("window")
	cfg, err := loadConfig(cmd, &flags{configPath: configPath, window: window, port: 8080})

	// THEN: Only the explicitly set flag wins
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.WindowMonths)
	assert.Equal(t, 9090, cfg.Server.Port)

	_, err = loadConfig(cmd, &flags{configPath: configPath, window: 7})
	assert.Error(t, err)
}
