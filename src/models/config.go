package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Storage  MStorageConfig `yaml:"storage"`
	Stream   MStreamConfig  `yaml:"stream"`
	Symbols  []string       `yaml:"symbols"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // "sqlite", "postgres" or "none"
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

// MStreamConfig carries every tunable of the resilience engine.
// Defaults come from DefaultStreamConfig; the YAML file overrides them.
type MStreamConfig struct {
	RelayURLTemplate  string `yaml:"relay_url_template"`
	DirectURLTemplate string `yaml:"direct_url_template"`

	ConnectTimeoutBaseSeconds int     `yaml:"connect_timeout_base_seconds"`
	BackoffBaseMs             int     `yaml:"backoff_base_ms"`
	BackoffCapMs              int     `yaml:"backoff_cap_ms"`
	BackoffJitter             float64 `yaml:"backoff_jitter"`
	HeartbeatIntervalSeconds  int     `yaml:"heartbeat_interval_seconds"`
	HeartbeatTimeoutSeconds   int     `yaml:"heartbeat_timeout_seconds"`
	CacheTTLSeconds           int     `yaml:"cache_ttl_seconds"`
	MaxAttempts               int     `yaml:"max_attempts"`
	OfflineRetrySeconds       int     `yaml:"offline_retry_seconds"`
	EndpointSwitchFailures    int     `yaml:"endpoint_switch_failures"`

	// Fallback values served when the stream goes Offline with an empty cache.
	FallbackPrice  float64 `yaml:"fallback_price"`
	FallbackChange float64 `yaml:"fallback_change"`

	UseSessionGate   bool `yaml:"use_session_gate"`
	UpdateBufferSize int  `yaml:"update_buffer_size"`
}

// -----------------------------------------------------------------------------

// DefaultStreamConfig returns the tunables observed in production use.
// They are configuration, not contracts.
func DefaultStreamConfig() MStreamConfig {
	return MStreamConfig{
		RelayURLTemplate:          "wss://relay.tick-stream.io/stream?symbol=%s",
		DirectURLTemplate:         "wss://stream.binance.com:9443/ws/%s@ticker",
		ConnectTimeoutBaseSeconds: 8,
		BackoffBaseMs:             1000,
		BackoffCapMs:              60000,
		BackoffJitter:             0.3,
		HeartbeatIntervalSeconds:  30,
		HeartbeatTimeoutSeconds:   60,
		CacheTTLSeconds:           300,
		MaxAttempts:               10,
		OfflineRetrySeconds:       60,
		EndpointSwitchFailures:    3,
		UseSessionGate:            false,
		UpdateBufferSize:          256,
	}
}
