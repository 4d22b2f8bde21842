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
// as "30m" and integer nanoseconds.
type JsonConfig struct {
	RunAddress                  string         `json:"run_address"`
	DatabaseDSN                 string         `json:"database_dsn"`
	InMemory                    bool           `json:"in_memory"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
}

// parseJson overlays values from the JSON file named by the -c/-config
// flag, if any. A missing flag means no file is loaded; an unreadable or
// invalid file panics, since running with half a config is worse than not
// starting.
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

	config.RunAddress = c.RunAddress
	config.DatabaseDSN = c.DatabaseDSN
	config.InMemory = c.InMemory
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
}
