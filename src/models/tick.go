package models

import "time"

// Tick source labels as they appear in MTickUpdate.Source.
const (
	SourceRelay   = "relay"
	SourceDirect  = "direct"
	SourceCached  = "cached"
	SourceOffline = "Offline"
)

// MTick represents one normalized market snapshot. Immutable once built;
// the stream client constructs a fresh MTick per inbound frame.
type MTick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	High24h   float64   `json:"high_24h"`
	Low24h    float64   `json:"low_24h"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// -----------------------------------------------------------------------------

// MTickUpdate is the consumer-facing event shape. Every update is well-formed:
// the worst a consumer ever observes is Source="Offline" with stale or
// fallback values, never an error.
type MTickUpdate struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	Change24h    float64   `json:"change_24h"`
	High24h      float64   `json:"high_24h"`
	Low24h       float64   `json:"low_24h"`
	Volume       float64   `json:"volume"`
	LastUpdate   time.Time `json:"last_update"`
	IsLive       bool      `json:"is_live"`
	IsConnecting bool      `json:"is_connecting"`
	Source       string    `json:"source"`
}
