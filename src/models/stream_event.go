package models

import "time"

// Event kinds recorded by the journal.
const (
	EventConnecting     = "connecting"
	EventOpen           = "open"
	EventBackoff        = "backoff"
	EventOffline        = "offline"
	EventEndpointSwitch = "endpoint_switch"
	EventClosed         = "closed"
)

// MStreamEvent is one connection-lifecycle record. Events are advisory
// metadata about the stream itself, never market data.
type MStreamEvent struct {
	Symbol    string    `json:"symbol"`
	Kind      string    `json:"kind"`
	Endpoint  string    `json:"endpoint"`
	Attempt   int       `json:"attempt"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// -----------------------------------------------------------------------------

// MQualitySample is one connect-latency measurement for the journal.
type MQualitySample struct {
	Symbol    string    `json:"symbol"`
	Endpoint  string    `json:"endpoint"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}
