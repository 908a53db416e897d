package models

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

type MLatestData struct {
	Type      string                   `json:"type"` // "INITIAL" or "UPDATE"
	Ticks     map[string]MTickUpdate   `json:"ticks"`
	Statuses  map[string]MStreamStatus `json:"statuses"`
	Timestamp int64                    `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// MSubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string   `json:"command"`
	Symbols []string `json:"symbols"`
}
