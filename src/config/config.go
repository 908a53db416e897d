package config

import (
	"fmt"
	"os"

	"tick-stream/src/helpers"
	"tick-stream/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, helpers.NewConfigurationError(fmt.Sprintf("failed to read config file '%s'", configPath), err)
	}

	// 2. Start from defaults so omitted stream keys keep their production values
	modelConfig := models.MConfig{
		Stream: models.DefaultStreamConfig(),
	}
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, helpers.NewConfigurationError("failed to parse config from YAML", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	case "none", "":
		// Journal disabled
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	// Validate Symbols
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol must be configured")
	}

	// Validate Stream configuration
	s := c.Stream
	if s.RelayURLTemplate == "" || s.DirectURLTemplate == "" {
		return fmt.Errorf("both relay and direct URL templates must be set")
	}
	if s.ConnectTimeoutBaseSeconds <= 0 {
		return fmt.Errorf("connect timeout must be greater than 0")
	}
	if s.BackoffBaseMs <= 0 || s.BackoffCapMs < s.BackoffBaseMs {
		return fmt.Errorf("invalid backoff configuration: base=%dms cap=%dms", s.BackoffBaseMs, s.BackoffCapMs)
	}
	if s.BackoffJitter < 0 || s.BackoffJitter >= 1 {
		return fmt.Errorf("backoff jitter must be in [0, 1): %f", s.BackoffJitter)
	}
	if s.HeartbeatIntervalSeconds <= 0 || s.HeartbeatTimeoutSeconds < s.HeartbeatIntervalSeconds {
		return fmt.Errorf("heartbeat timeout must be at least the heartbeat interval")
	}
	if s.CacheTTLSeconds <= 0 {
		return fmt.Errorf("cache TTL must be greater than 0")
	}
	if s.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be greater than 0")
	}
	if s.OfflineRetrySeconds <= 0 {
		return fmt.Errorf("offline retry interval must be greater than 0")
	}
	if s.EndpointSwitchFailures <= 0 {
		return fmt.Errorf("endpoint switch failure count must be greater than 0")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
