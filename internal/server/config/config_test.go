package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.RunAddress)
	assert.NotEmpty(t, cfg.DatabaseDSN)
	assert.False(t, cfg.InMemory)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
}

func Test_parseJson_LoadsFromFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"run_address":                    ":9090",
		"database_dsn":                   "postgres://example/taskvault",
		"in_memory":                      true,
		"secret_key":                     "my_secret_key",
		"access_token_validity_duration": "1h",
	})
	os.Args = []string{"testbin", "-config", path}

	cfg := &Config{}
	parseJson(cfg)

	assert.Equal(t, ":9090", cfg.RunAddress)
	assert.Equal(t, "postgres://example/taskvault", cfg.DatabaseDSN)
	assert.True(t, cfg.InMemory)
	assert.Equal(t, "my_secret_key", cfg.SecretKey)
	assert.Equal(t, time.Hour, cfg.AccessTokenValidityDuration)
}

func Test_parseJson_NoFlagIsNoop(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := &Config{}
	cfg.LoadDefaults()
	before := *cfg
	parseJson(cfg)

	assert.Equal(t, before, *cfg)
}

func Test_parseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin", "-a", ":7070", "-m", "-s", "flagsecret", "-t", "5"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, ":7070", cfg.RunAddress)
	assert.True(t, cfg.InMemory)
	assert.Equal(t, "flagsecret", cfg.SecretKey)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenValidityDuration)
}
