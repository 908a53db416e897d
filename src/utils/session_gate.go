package utils

import (
	"strings"
	"sync"
	"time"

	"tick-stream/src/interfaces"
	"tick-stream/src/logger"
)

// -----------------------------------------------------------------------------
// SessionGate maps symbols to trading calendars and answers whether the
// market is in session. Crypto pairs trade 24/7 and are always open; only
// exchange-suffixed equity symbols consult a calendar. The stream client uses
// this solely to stretch the offline retry horizon outside sessions.
// -----------------------------------------------------------------------------

type SessionGate struct {
	Logger    *logger.Logger
	calendars map[string]*TradingCalendar
	mu        sync.RWMutex
}

// Compile-time interface check
var _ interfaces.ISessionGate = (*SessionGate)(nil)

// -----------------------------------------------------------------------------

func NewSessionGate(log *logger.Logger) *SessionGate {
	return &SessionGate{
		Logger:    log,
		calendars: make(map[string]*TradingCalendar),
	}
}

// -----------------------------------------------------------------------------

// MarketOpen reports whether the symbol's market is trading right now.
func (g *SessionGate) MarketOpen(symbol string) bool {
	if isCryptoPair(symbol) {
		return true
	}

	g.mu.RLock()
	cal, ok := g.calendars[symbol]
	g.mu.RUnlock()

	if !ok {
		cal = GetCalendar(symbol)
		g.mu.Lock()
		g.calendars[symbol] = cal
		g.mu.Unlock()
		g.Logger.Debug("Mapped %s to trading calendar", symbol)
	}

	return cal.IsOpenOnMinute(time.Now().UTC())
}

// -----------------------------------------------------------------------------

// isCryptoPair recognizes exchange trading pairs like BTCUSDT or ETHBTC.
// Equity symbols carry an exchange suffix (AAPL has none but trades on xnys);
// the heuristic is quote-asset based.
func isCryptoPair(symbol string) bool {
	if strings.Contains(symbol, ".") {
		return false
	}

	upper := strings.ToUpper(symbol)
	for _, quote := range []string{"USDT", "USDC", "BUSD", "BTC", "ETH", "EUR"} {
		if strings.HasSuffix(upper, quote) && len(upper) > len(quote) {
			return true
		}
	}
	return false
}
