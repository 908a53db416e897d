package interfaces

// -----------------------------------------------------------------------------
// ISessionGate answers whether a symbol's market is currently trading.
// Crypto pairs trade around the clock; suffixed equity symbols follow their
// exchange calendar.
// -----------------------------------------------------------------------------

type ISessionGate interface {

	// -----------------------------------------------------------------------------

	// MarketOpen reports whether the symbol's market is in session right now.
	MarketOpen(symbol string) bool
}
