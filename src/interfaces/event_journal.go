package interfaces

import "tick-stream/src/models"

// -----------------------------------------------------------------------------
// IEventJournal defines the contract for the connection-lifecycle journal.
// The journal is advisory: implementations log failures and move on, they
// never propagate errors into the stream state machine.
// -----------------------------------------------------------------------------

type IEventJournal interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the schema.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveEvent records one lifecycle event (state transition, endpoint
	// switch, offline entry).
	SaveEvent(event models.MStreamEvent) error

	// -----------------------------------------------------------------------------

	// SaveQualitySample records one connect-latency measurement.
	SaveQualitySample(sample models.MQualitySample) error

	// -----------------------------------------------------------------------------

	// CleanupOldEvents removes records older than the retention policy.
	CleanupOldEvents() error

	// -----------------------------------------------------------------------------

	// Close the underlying connection
	Close() error
}
