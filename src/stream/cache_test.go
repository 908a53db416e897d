package stream

import (
	"testing"
	"time"

	"tick-stream/src/models"

	"github.com/stretchr/testify/assert"
)

func TestCacheGetReturnsExpiredEntries(t *testing.T) {
	c := NewLastGoodCache(10 * time.Millisecond)
	c.Set("BTCUSDT", models.MTick{Symbol: "BTCUSDT", Price: 50000})

	time.Sleep(30 * time.Millisecond)

	// Past TTL the value is still served; staleness is a label, not a veto.
	tick, ok := c.Get("BTCUSDT")
	assert.True(t, ok)
	assert.Equal(t, 50000.0, tick.Price)
	assert.True(t, c.IsStale("BTCUSDT"))

	age, ok := c.Age("BTCUSDT")
	assert.True(t, ok)
	assert.Greater(t, age, c.TTL())
}

func TestCacheMissingSymbol(t *testing.T) {
	c := NewLastGoodCache(time.Minute)

	_, ok := c.Get("ETHUSDT")
	assert.False(t, ok)

	_, ok = c.Age("ETHUSDT")
	assert.False(t, ok)

	// Absent is not stale.
	assert.False(t, c.IsStale("ETHUSDT"))
}

func TestCacheLastWriteWins(t *testing.T) {
	c := NewLastGoodCache(time.Minute)
	c.Set("BTCUSDT", models.MTick{Symbol: "BTCUSDT", Price: 50000})
	c.Set("BTCUSDT", models.MTick{Symbol: "BTCUSDT", Price: 50100})

	tick, ok := c.Get("BTCUSDT")
	assert.True(t, ok)
	assert.Equal(t, 50100.0, tick.Price)
	assert.False(t, c.IsStale("BTCUSDT"))
}
