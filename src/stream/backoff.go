package stream

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// BackoffController computes retry delays from the consecutive-failure count.
// Pure arithmetic plus a random source; no I/O, no blocking.
// -----------------------------------------------------------------------------

type BackoffController struct {
	base    time.Duration
	cap     time.Duration
	jitter  float64 // jitter fraction, e.g. 0.3 for +/-30%
	attempt int
	rng     *rand.Rand
	mu      sync.Mutex
}

// -----------------------------------------------------------------------------

// NewBackoffController creates a controller with the given base delay, cap
// and jitter fraction.
func NewBackoffController(base, cap time.Duration, jitter float64) *BackoffController {
	return &BackoffController{
		base:   base,
		cap:    cap,
		jitter: jitter,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// -----------------------------------------------------------------------------

// NextDelay returns the delay before the next connection attempt and
// increments the attempt counter. Jitter applies from attempt 0 so that a
// fleet of clients never retries in lockstep, even on the first failure.
func (b *BackoffController) NextDelay() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := float64(b.base) * math.Pow(2, float64(b.attempt))
	if delay > float64(b.cap) {
		delay = float64(b.cap)
	}

	// Multiplicative jitter: delay * (1 + uniform(-jitter, +jitter))
	if b.jitter > 0 {
		delay *= 1 + (b.rng.Float64()*2-1)*b.jitter
	}

	// Clamp to [0, cap]
	if delay < 0 {
		delay = 0
	}
	if delay > float64(b.cap) {
		delay = float64(b.cap)
	}

	b.attempt++
	return time.Duration(delay)
}

// -----------------------------------------------------------------------------

// CurrentAttempt returns how many delays have been handed out since the last
// Reset.
func (b *BackoffController) CurrentAttempt() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempt
}

// -----------------------------------------------------------------------------

// Reset zeroes the attempt counter. Called exactly once per connection epoch,
// immediately after the transport reaches Open.
func (b *BackoffController) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempt = 0
}
