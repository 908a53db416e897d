package stream

import (
	"context"
	"fmt"
	"sync"

	"tick-stream/src/interfaces"
	"tick-stream/src/logger"
	"tick-stream/src/models"
)

// -----------------------------------------------------------------------------
// StreamRegistry owns one shared StreamClient per symbol with reference
// counting: the first subscriber spins the stream up, the last one tears it
// down. An explicit registry instead of ambient globals; the process decides
// how many registries exist (normally one).
// -----------------------------------------------------------------------------

type registryEntry struct {
	client      *StreamClient
	refs        int
	subscribers map[int]chan models.MTickUpdate
	nextSubID   int
}

type StreamRegistry struct {
	Config    models.MStreamConfig
	Logger    *logger.Logger
	dialer    interfaces.IConnectionClient
	journal   interfaces.IEventJournal
	gate      interfaces.ISessionGate
	exchanger interfaces.IDataExchanger

	entries map[string]*registryEntry
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// -----------------------------------------------------------------------------

// NewStreamRegistry creates a registry. journal, gate and exchanger may be
// nil; the registry then runs streams without journaling, session gating or
// server fan-out.
func NewStreamRegistry(
	cfg models.MStreamConfig,
	dialer interfaces.IConnectionClient,
	journal interfaces.IEventJournal,
	gate interfaces.ISessionGate,
	exchanger interfaces.IDataExchanger,
) *StreamRegistry {
	return &StreamRegistry{
		Config:    cfg,
		Logger:    logger.NewLogger(nil, "StreamRegistry"),
		dialer:    dialer,
		journal:   journal,
		gate:      gate,
		exchanger: exchanger,
		entries:   make(map[string]*registryEntry),
	}
}

// -----------------------------------------------------------------------------

// Start makes the registry ready to serve subscriptions.
func (r *StreamRegistry) Start(parentCtx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx != nil {
		return fmt.Errorf("StreamRegistry is already running")
	}
	r.ctx, r.cancel = context.WithCancel(parentCtx)
	return nil
}

// -----------------------------------------------------------------------------

// Stop tears down every stream and waits for their run loops to exit.
func (r *StreamRegistry) Stop() error {
	r.mu.Lock()
	if r.ctx == nil {
		r.mu.Unlock()
		return nil
	}
	r.cancel()
	r.ctx = nil
	r.cancel = nil
	// Drop the entries so Statuses() stops reporting dead streams and a
	// later Start/Subscribe cycle builds fresh clients.
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	r.wg.Wait()
	r.Logger.Info("StreamRegistry stopped")
	return nil
}

// -----------------------------------------------------------------------------

// Subscribe attaches a consumer to the symbol's shared stream, creating it on
// first use. The returned channel closes when the consumer unsubscribes or
// the registry stops. The returned func is the unsubscribe handle; calling it
// more than once is safe.
func (r *StreamRegistry) Subscribe(symbol string) (<-chan models.MTickUpdate, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx == nil {
		return nil, nil, fmt.Errorf("StreamRegistry is not running")
	}

	entry, exists := r.entries[symbol]
	if !exists {
		client := NewStreamClient(symbol, r.Config, r.dialer, r.journal, r.gate)
		if err := client.Start(r.ctx, &r.wg); err != nil {
			return nil, nil, err
		}

		entry = &registryEntry{
			client:      client,
			subscribers: make(map[int]chan models.MTickUpdate),
		}
		r.entries[symbol] = entry

		r.wg.Add(1)
		go r.fanOut(symbol, entry)
		r.Logger.Info("Created shared stream for %s", symbol)
	}

	id := entry.nextSubID
	entry.nextSubID++
	ch := make(chan models.MTickUpdate, 64)
	entry.subscribers[id] = ch
	entry.refs++

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { r.unsubscribe(symbol, id) })
	}
	return ch, unsubscribe, nil
}

// -----------------------------------------------------------------------------

func (r *StreamRegistry) unsubscribe(symbol string, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[symbol]
	if !exists {
		return
	}

	if ch, ok := entry.subscribers[id]; ok {
		delete(entry.subscribers, id)
		close(ch)
		entry.refs--
	}

	// Last unsubscriber tears down the shared stream.
	if entry.refs <= 0 {
		delete(r.entries, symbol)
		if err := entry.client.Stop(); err != nil {
			r.Logger.Warning("Stopping stream for %s: %v", symbol, err)
		}
		r.Logger.Info("Released shared stream for %s", symbol)
	}
}

// -----------------------------------------------------------------------------

// fanOut forwards every update from the shared client to all current
// subscribers and the server exchanger. Ends when the client's channel
// closes.
func (r *StreamRegistry) fanOut(symbol string, entry *registryEntry) {
	defer r.wg.Done()

	for update := range entry.client.Updates() {
		r.mu.Lock()
		for _, ch := range entry.subscribers {
			select {
			case ch <- update:
			default:
				// Slow consumer; drop rather than stall the stream.
			}
		}
		r.mu.Unlock()

		if r.exchanger != nil {
			r.exchanger.BroadcastTick(update)
		}
	}

	// Client stopped: close any subscriber channels that remain (registry
	// shutdown path; normal unsubscribe already removed them).
	r.mu.Lock()
	for id, ch := range entry.subscribers {
		delete(entry.subscribers, id)
		close(ch)
	}
	r.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Statuses snapshots every active stream for the control surface.
func (r *StreamRegistry) Statuses() map[string]models.MStreamStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make(map[string]models.MStreamStatus, len(r.entries))
	for symbol, entry := range r.entries {
		status := entry.client.Status()
		status.Subscribers = entry.refs
		statuses[symbol] = status
	}
	return statuses
}
