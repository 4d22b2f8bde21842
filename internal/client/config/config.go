// Package config handles configuration for the TaskVault CLI, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the client.
//
// Fields:
//   - ServerAddr: base URL of the record server (http:// or https://).
//     The websocket notification URL is derived from it.
//   - DatabasePath: path of the local SQLite vault file.
//   - PollInterval: how often the watch loop runs an incremental sync
//     regardless of notifications.
//   - DebounceWindow: minimum spacing between outbound change pings.
//   - RequestTimeout: per-request timeout for remote calls.
type Config struct {
	ServerAddr     string
	DatabasePath   string
	PollInterval   time.Duration
	DebounceWindow time.Duration
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "taskvault.db"
	c.PollInterval = 30 * time.Second
	c.DebounceWindow = 2 * time.Second
	c.RequestTimeout = 15 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
