package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/taskvault/taskvault/internal/flagx"
	"github.com/taskvault/taskvault/internal/timex"
)

// JsonConfig is the JSON-file counterpart of Config. It uses
// timex.Duration for interval fields, which parses both string values such
// as "30s" and integer nanoseconds.
type JsonConfig struct {
	ServerAddr     string         `json:"server_addr"`
	DatabasePath   string         `json:"database_path"`
	PollInterval   timex.Duration `json:"poll_interval"`
	DebounceWindow timex.Duration `json:"debounce_window"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

// parseJson overlays values from the JSON file named by the -c/-config
// flag, if any.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.ServerAddr = c.ServerAddr
	config.DatabasePath = c.DatabasePath
	config.PollInterval = time.Duration(c.PollInterval.Duration)
	config.DebounceWindow = time.Duration(c.DebounceWindow.Duration)
	config.RequestTimeout = time.Duration(c.RequestTimeout.Duration)
}
