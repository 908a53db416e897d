package stream

import (
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// HeartbeatMonitor detects silent connections. Liveness is inferred from ANY
// inbound traffic, not protocol-level pongs: many feeds never send an explicit
// ping/pong, and the transport's own keepalive can be absent or unreliable.
// The monitor only signals; the caller owns the transport and decides what to
// do on timeout.
// -----------------------------------------------------------------------------

type HeartbeatMonitor struct {
	interval time.Duration
	timeout  time.Duration

	lastPong time.Time
	ticker   *time.Ticker
	done     chan struct{}
	running  bool
	mu       sync.Mutex
}

// -----------------------------------------------------------------------------

// NewHeartbeatMonitor creates a monitor that checks every interval and fires
// when no traffic has arrived within timeout.
func NewHeartbeatMonitor(interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		interval: interval,
		timeout:  timeout,
	}
}

// -----------------------------------------------------------------------------

// Start arms the periodic check. onTimeout is invoked at most once per Start;
// the monitor stops itself after firing. onTick, if non-nil, is invoked on
// every check that finds the connection alive. Calling Start on a running
// monitor re-arms it.
func (h *HeartbeatMonitor) Start(onTimeout, onTick func()) {
	h.mu.Lock()
	if h.running {
		h.stopLocked()
	}

	h.lastPong = time.Now()
	h.ticker = time.NewTicker(h.interval)
	h.done = make(chan struct{})
	h.running = true

	ticker := h.ticker
	done := h.done
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				h.mu.Lock()
				silent := time.Since(h.lastPong) >= h.timeout
				if silent && h.running {
					h.stopLocked()
					h.mu.Unlock()
					onTimeout()
					return
				}
				h.mu.Unlock()
				if onTick != nil {
					onTick()
				}
			}
		}
	}()
}

// -----------------------------------------------------------------------------

// RecordPong marks the connection alive. Called on every inbound frame.
func (h *HeartbeatMonitor) RecordPong() {
	h.mu.Lock()
	h.lastPong = time.Now()
	h.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Stop disarms the monitor. Idempotent; safe before Start and after timeout.
func (h *HeartbeatMonitor) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

// -----------------------------------------------------------------------------

func (h *HeartbeatMonitor) stopLocked() {
	if !h.running {
		return
	}
	h.ticker.Stop()
	close(h.done)
	h.running = false
}
