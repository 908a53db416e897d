package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpointURLTemplating(t *testing.T) {
	r := NewEndpointResolver(
		"wss://relay.tick-stream.io/stream?symbol=%s",
		"wss://stream.binance.com:9443/ws/%s@ticker",
	)

	// Relay keeps the symbol verbatim, direct wants it lower-cased.
	assert.Equal(t, "wss://relay.tick-stream.io/stream?symbol=BTCUSDT", r.URL(EndpointRelay, "BTCUSDT"))
	assert.Equal(t, "wss://stream.binance.com:9443/ws/btcusdt@ticker", r.URL(EndpointDirect, "BTCUSDT"))
}

func TestEndpointString(t *testing.T) {
	assert.Equal(t, "relay", EndpointRelay.String())
	assert.Equal(t, "direct", EndpointDirect.String())
}
