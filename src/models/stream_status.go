package models

// -----------------------------------------------------------------------------

// MStreamStatus represents the runtime status and technical metadata of a
// symbol stream. It aggregates information from the stream client and its
// resilience helpers.

type MStreamStatus struct {
	Symbol       string  `json:"symbol"`
	State        string  `json:"state"`    // Idle, Connecting, Open, Closing, Backoff, Offline
	Endpoint     string  `json:"endpoint"` // "relay" or "direct"
	EndpointURL  string  `json:"endpoint_url"`
	Attempt      int     `json:"attempt"`
	Quality      string  `json:"quality"` // Poor, Fair, Good
	LastTickAge  float64 `json:"last_tick_age_seconds"`
	HasCached    bool    `json:"has_cached"`
	Subscribers  int     `json:"subscribers"`
	ConnectCount int64   `json:"connect_count"`
}
