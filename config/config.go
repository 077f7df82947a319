/*
Package config loads the household engine configuration.

FILE FORMAT (TOML):
  [server]
  port = 8080
  db_path = "household.db"

  [engine]
  window_months = 6        # 3, 6 or 12
  realtime_overlay = true
  location = "Europe/Paris" # IANA zone, empty means Local
  epochs = 12

  [scheduler]
  interval = "1h"
  debounce = "700ms"

  [log]
  level = "info"
  pretty = false

A missing file yields DefaultConfig. Values present in the file replace
defaults field by field; cobra flags in cmd/server override both.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/warp/household-engine/brain"
	"github.com/warp/household-engine/scenario"
)

// Config holds all engine configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Engine    EngineConfig    `toml:"engine"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Log       LogConfig       `toml:"log"`
}

type ServerConfig struct {
	Port   int    `toml:"port"`
	DBPath string `toml:"db_path"`
}

type EngineConfig struct {
	WindowMonths    int    `toml:"window_months"`
	RealtimeOverlay bool   `toml:"realtime_overlay"`
	Location        string `toml:"location,omitempty"`
	Epochs          int    `toml:"epochs"`
}

type SchedulerConfig struct {
	Interval Duration `toml:"interval"`
	Debounce Duration `toml:"debounce"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:   8080,
			DBPath: "household.db",
		},
		Engine: EngineConfig{
			WindowMonths:    scenario.DefaultWindow,
			RealtimeOverlay: true,
			Epochs:          brain.DefaultEpochs,
		},
		Scheduler: SchedulerConfig{
			Interval: Duration{time.Hour},
			Debounce: Duration{700 * time.Millisecond},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path, returning defaults if it doesn't exist.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values the engine cannot repair itself.
func (c Config) Validate() error {
	if err := scenario.ValidateWindow(c.Engine.WindowMonths); err != nil {
		return fmt.Errorf("engine.window_months: %w", err)
	}
	if c.Engine.Epochs <= 0 {
		return fmt.Errorf("engine.epochs must be positive, got %d", c.Engine.Epochs)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("engine.location: %w", err)
	}
	if c.Scheduler.Debounce.Duration < 0 || c.Scheduler.Interval.Duration < 0 {
		return fmt.Errorf("scheduler durations must not be negative")
	}
	return nil
}

// Location resolves the household time zone.
func (c Config) Location() (*time.Location, error) {
	if c.Engine.Location == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Engine.Location)
}
