// Package config holds runtime settings for the agent process. Values come
// from defaults overlaid with an optional JSON file; the sync server
// configuration itself lives in the database, not here.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tracelight/agent/internal/timex"
)

// Config holds process-level settings.
//
// Units: intervals are time.Durations; SyncThreshold is an event count.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string
	// PollInterval is the monitor's tick interval.
	PollInterval time.Duration
	// IdleThreshold is the idle duration at which capture is suppressed.
	IdleThreshold time.Duration
	// SyncInterval is how often the auto-sync scheduler wakes up.
	SyncInterval time.Duration
	// SyncThreshold is the pending-event count that triggers an auto-sync.
	SyncThreshold int64
	// MetricsAddr, when non-empty, exposes Prometheus metrics on this
	// listen address.
	MetricsAddr string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DBPath = defaultDBPath()
	c.PollInterval = time.Second
	c.IdleThreshold = 300 * time.Second
	c.SyncInterval = 5 * time.Minute
	c.SyncThreshold = 100
	c.MetricsAddr = ""
}

// LoadConfig constructs a Config by applying defaults and then overlaying
// values from the JSON file at path, when path is non-empty. Values absent
// from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path == "" {
		return cfg, nil
	}
	if err := cfg.overlayJSON(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// jsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so intervals can be written either as strings like "5m" or
// as integer nanoseconds.
type jsonConfig struct {
	DBPath        string         `json:"db_path"`
	PollInterval  timex.Duration `json:"poll_interval"`
	IdleThreshold timex.Duration `json:"idle_threshold"`
	SyncInterval  timex.Duration `json:"sync_interval"`
	SyncThreshold int64          `json:"sync_threshold"`
	MetricsAddr   string         `json:"metrics_addr"`
}

func (c *Config) overlayJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if jc.DBPath != "" {
		c.DBPath = jc.DBPath
	}
	if jc.PollInterval.Duration > 0 {
		c.PollInterval = jc.PollInterval.Duration
	}
	if jc.IdleThreshold.Duration > 0 {
		c.IdleThreshold = jc.IdleThreshold.Duration
	}
	if jc.SyncInterval.Duration > 0 {
		c.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.SyncThreshold > 0 {
		c.SyncThreshold = jc.SyncThreshold
	}
	if jc.MetricsAddr != "" {
		c.MetricsAddr = jc.MetricsAddr
	}
	return nil
}

// defaultDBPath places the database under the user's config directory,
// falling back to the working directory when none is available.
func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tracelight.db"
	}
	return filepath.Join(dir, "tracelight", "tracelight.db")
}
