package stream

import (
	"sync"
	"time"

	"tick-stream/src/models"
)

// -----------------------------------------------------------------------------
// LastGoodCache stores the most recent valid tick per symbol with a fixed TTL.
// Get returns values even past the TTL: the cache reports age and never hides
// expired data, the stream client decides whether to label it stale. The
// stream client is the sole writer.
// -----------------------------------------------------------------------------

type cacheEntry struct {
	tick     models.MTick
	insertAt time.Time
}

type LastGoodCache struct {
	ttl     time.Duration
	entries map[string]cacheEntry
	mu      sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewLastGoodCache(ttl time.Duration) *LastGoodCache {
	return &LastGoodCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// -----------------------------------------------------------------------------

// Set stores the tick for the symbol; last write wins.
func (c *LastGoodCache) Set(symbol string, tick models.MTick) {
	c.mu.Lock()
	c.entries[symbol] = cacheEntry{tick: tick, insertAt: time.Now()}
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Get returns the cached tick regardless of age.
func (c *LastGoodCache) Get(symbol string) (models.MTick, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	if !ok {
		return models.MTick{}, false
	}
	return entry.tick, true
}

// -----------------------------------------------------------------------------

// Age returns how long ago the entry was inserted.
func (c *LastGoodCache) Age(symbol string) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	if !ok {
		return 0, false
	}
	return time.Since(entry.insertAt), true
}

// -----------------------------------------------------------------------------

// IsStale reports whether the entry is older than the TTL. Missing entries
// are not stale, they are absent.
func (c *LastGoodCache) IsStale(symbol string) bool {
	age, ok := c.Age(symbol)
	return ok && age > c.ttl
}

// -----------------------------------------------------------------------------

// TTL returns the fixed time-to-live.
func (c *LastGoodCache) TTL() time.Duration {
	return c.ttl
}
