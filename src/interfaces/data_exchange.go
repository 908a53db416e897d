package interfaces

import "tick-stream/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defines the interface for sharing stream output with
// external systems (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// BroadcastTick pushes one tick update to external listeners.
	BroadcastTick(update models.MTickUpdate)

	// -----------------------------------------------------------------------------
	// UpdateStatuses replaces the internal status snapshot without broadcasting.
	UpdateStatuses(statuses map[string]models.MStreamStatus)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
