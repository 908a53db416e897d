package config

import (
	"os"
	"path/filepath"
	"testing"

	"tick-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalYAML = `
name: "tick-stream-test"
host: "127.0.0.1"
port: 9100
storage:
  db_type: "none"
symbols:
  - "BTCUSDT"
`

func TestNewConfigKeepsStreamDefaults(t *testing.T) {
	path := writeTempConfig(t, minimalYAML)

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "tick-stream-test", cfg.Name)
	assert.Equal(t, 9100, cfg.Port)

	// Omitted stream keys keep the production defaults.
	defaults := models.DefaultStreamConfig()
	assert.Equal(t, defaults.BackoffBaseMs, cfg.Stream.BackoffBaseMs)
	assert.Equal(t, defaults.MaxAttempts, cfg.Stream.MaxAttempts)
	assert.Equal(t, defaults.RelayURLTemplate, cfg.Stream.RelayURLTemplate)
}

func TestNewConfigAppliesOverrides(t *testing.T) {
	path := writeTempConfig(t, minimalYAML+`
stream:
  backoff_base_ms: 500
  max_attempts: 4
`)

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Stream.BackoffBaseMs)
	assert.Equal(t, 4, cfg.Stream.MaxAttempts)

	// Untouched keys still default.
	assert.Equal(t, models.DefaultStreamConfig().BackoffCapMs, cfg.Stream.BackoffCapMs)
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewConfigInvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "{not yaml")
	_, err := NewConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{MConfig: &models.MConfig{
			Name:     "tick-stream-test",
			Host:     "127.0.0.1",
			Port:     9100,
			Storage:  models.MStorageConfig{DBType: "none"},
			Stream:   models.DefaultStreamConfig(),
			Symbols:  []string{"BTCUSDT"},
			LogLevel: "INFO",
		}}
	}

	tests := []struct {
		name          string
		mutate        func(c *Config)
		expectedError bool
	}{
		{
			name:          "valid configuration",
			mutate:        func(c *Config) {},
			expectedError: false,
		},
		{
			name:          "empty name",
			mutate:        func(c *Config) { c.Name = "" },
			expectedError: true,
		},
		{
			name:          "privileged port",
			mutate:        func(c *Config) { c.Port = 80 },
			expectedError: true,
		},
		{
			name:          "sqlite without path",
			mutate:        func(c *Config) { c.Storage = models.MStorageConfig{DBType: "sqlite"} },
			expectedError: true,
		},
		{
			name:          "postgres without connection string",
			mutate:        func(c *Config) { c.Storage = models.MStorageConfig{DBType: "postgres"} },
			expectedError: true,
		},
		{
			name:          "unsupported database type",
			mutate:        func(c *Config) { c.Storage = models.MStorageConfig{DBType: "oracle"} },
			expectedError: true,
		},
		{
			name:          "no symbols",
			mutate:        func(c *Config) { c.Symbols = nil },
			expectedError: true,
		},
		{
			name:          "jitter out of range",
			mutate:        func(c *Config) { c.Stream.BackoffJitter = 1.0 },
			expectedError: true,
		},
		{
			name:          "cap below base",
			mutate:        func(c *Config) { c.Stream.BackoffCapMs = c.Stream.BackoffBaseMs - 1 },
			expectedError: true,
		},
		{
			name:          "heartbeat timeout below interval",
			mutate:        func(c *Config) { c.Stream.HeartbeatTimeoutSeconds = 1 },
			expectedError: true,
		},
		{
			name:          "zero max attempts",
			mutate:        func(c *Config) { c.Stream.MaxAttempts = 0 },
			expectedError: true,
		},
		{
			name:          "zero endpoint switch count",
			mutate:        func(c *Config) { c.Stream.EndpointSwitchFailures = 0 },
			expectedError: true,
		},
		{
			name:          "missing url template",
			mutate:        func(c *Config) { c.Stream.RelayURLTemplate = "" },
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := writeTempConfig(t, minimalYAML)
	cfg, err := NewConfig(path)
	require.NoError(t, err)

	cfg.Stream.MaxAttempts = 7
	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(out))

	reloaded, err := NewConfig(out)
	require.NoError(t, err)
	assert.Equal(t, 7, reloaded.Stream.MaxAttempts)
	assert.Equal(t, cfg.Name, reloaded.Name)
}
