package interfaces

import "context"

// -----------------------------------------------------------------------------
// IConnectionClient defines the contract for opening a streaming transport.
// The stream client measures connect latency around Dial, so implementations
// must not retry internally; one Dial is one connection attempt.
// -----------------------------------------------------------------------------

type IConnectionClient interface {

	// -----------------------------------------------------------------------------

	// Dial opens a transport to the given URL. The context carries the
	// connect timeout; a cancelled or expired context must abort the attempt.
	Dial(ctx context.Context, url string) (IStreamConn, error)
}

// -----------------------------------------------------------------------------
// IStreamConn is one established transport connection.
// -----------------------------------------------------------------------------

type IStreamConn interface {

	// -----------------------------------------------------------------------------

	// ReadMessage blocks until the next inbound frame or a transport error.
	// After Close it must return an error promptly.
	ReadMessage() ([]byte, error)

	// -----------------------------------------------------------------------------

	// Close tears down the connection. Safe to call more than once.
	Close() error
}
