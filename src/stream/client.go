package stream

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tick-stream/src/helpers"
	"tick-stream/src/interfaces"
	"tick-stream/src/logger"
	"tick-stream/src/models"
)

// -----------------------------------------------------------------------------
// Connection states. Owned exclusively by the StreamClient; the run loop is
// the only place transitions happen.
// -----------------------------------------------------------------------------

type ConnState int32

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosing
	StateBackoff
	StateOffline
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateOpen:
		return "Open"
	case StateClosing:
		return "Closing"
	case StateBackoff:
		return "Backoff"
	case StateOffline:
		return "Offline"
	default:
		return "Idle"
	}
}

// Retry horizon multiplier applied while an equity symbol's market is closed.
const sessionClosedFactor = 5

// -----------------------------------------------------------------------------
// StreamClient is the per-symbol resilience engine. One goroutine owns the
// transport, the timers and every state transition; nothing else mutates the
// instance. Any failure (dial error, read error, heartbeat timeout) is
// equally retryable; the only fatal condition is Stop.
// -----------------------------------------------------------------------------

type StreamClient struct {
	Symbol string
	Config models.MStreamConfig
	Logger *logger.Logger

	dialer   interfaces.IConnectionClient
	resolver *EndpointResolver
	backoff  *BackoffController
	quality  *QualityDetector
	cache    *LastGoodCache
	monitor  *HeartbeatMonitor
	journal  interfaces.IEventJournal // optional
	gate     interfaces.ISessionGate  // optional
	errs     *helpers.ErrorHandler

	updates chan models.MTickUpdate

	// Run-loop private fields; read by Status() under mu.
	endpoint     Endpoint
	consecFails  int
	state        atomic.Int32
	connectCount atomic.Int64

	cancelFunc context.CancelFunc
	isRunning  atomic.Bool
	mu         sync.Mutex
}

// -----------------------------------------------------------------------------

// NewStreamClient creates a stream client for one symbol. journal and gate
// may be nil.
func NewStreamClient(
	symbol string,
	cfg models.MStreamConfig,
	dialer interfaces.IConnectionClient,
	journal interfaces.IEventJournal,
	gate interfaces.ISessionGate,
) *StreamClient {
	bufSize := cfg.UpdateBufferSize
	if bufSize <= 0 {
		bufSize = 256
	}

	return &StreamClient{
		Symbol:   symbol,
		Config:   cfg,
		Logger:   logger.NewLogger(nil, "StreamClient-"+symbol),
		dialer:   dialer,
		resolver: NewEndpointResolver(cfg.RelayURLTemplate, cfg.DirectURLTemplate),
		backoff: NewBackoffController(
			time.Duration(cfg.BackoffBaseMs)*time.Millisecond,
			time.Duration(cfg.BackoffCapMs)*time.Millisecond,
			cfg.BackoffJitter,
		),
		quality: NewQualityDetector(time.Duration(cfg.ConnectTimeoutBaseSeconds) * time.Second),
		cache:   NewLastGoodCache(time.Duration(cfg.CacheTTLSeconds) * time.Second),
		monitor: NewHeartbeatMonitor(
			time.Duration(cfg.HeartbeatIntervalSeconds)*time.Second,
			time.Duration(cfg.HeartbeatTimeoutSeconds)*time.Second,
		),
		journal:  journal,
		gate:     gate,
		errs:     helpers.NewErrorHandler(),
		endpoint: EndpointRelay,
		updates:  make(chan models.MTickUpdate, bufSize),
	}
}

// -----------------------------------------------------------------------------

// Updates returns the consumer-facing event channel. It is closed when the
// client stops; after that no further events are emitted.
func (c *StreamClient) Updates() <-chan models.MTickUpdate {
	return c.updates
}

// -----------------------------------------------------------------------------

// Start launches the run loop.
func (c *StreamClient) Start(parentCtx context.Context, wg *sync.WaitGroup) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isRunning.Load() {
		return fmt.Errorf("stream for %s is already running", c.Symbol)
	}

	ctx, cancel := context.WithCancel(parentCtx)
	c.cancelFunc = cancel
	c.isRunning.Store(true)

	wg.Add(1)
	go c.run(ctx, wg)
	c.Logger.Info("Started stream for %s", c.Symbol)
	return nil
}

// -----------------------------------------------------------------------------

// Stop tears the stream down: pending timers are abandoned, the heartbeat
// monitor stops and the transport closes. Unconditional from any state.
func (c *StreamClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isRunning.Load() {
		return fmt.Errorf("stream for %s is not running", c.Symbol)
	}

	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.isRunning.Store(false)
	c.Logger.Info("Stopping stream for %s", c.Symbol)
	return nil
}

// -----------------------------------------------------------------------------

// Status returns a point-in-time snapshot for the control surface.
func (c *StreamClient) Status() models.MStreamStatus {
	c.mu.Lock()
	endpoint := c.endpoint
	c.mu.Unlock()

	status := models.MStreamStatus{
		Symbol:       c.Symbol,
		State:        ConnState(c.state.Load()).String(),
		Endpoint:     endpoint.String(),
		EndpointURL:  c.resolver.URL(endpoint, c.Symbol),
		Attempt:      c.backoff.CurrentAttempt(),
		Quality:      c.quality.Quality().String(),
		ConnectCount: c.connectCount.Load(),
	}

	if age, ok := c.cache.Age(c.Symbol); ok {
		status.HasCached = true
		status.LastTickAge = age.Seconds()
	}
	return status
}

// -----------------------------------------------------------------------------
// Run loop
// -----------------------------------------------------------------------------

func (c *StreamClient) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(c.updates)
	defer c.setState(StateIdle)
	defer c.journalEvent(models.EventClosed, "stream stopped")

	for {
		if ctx.Err() != nil {
			c.setState(StateClosing)
			return
		}

		conn, ok := c.connect(ctx)
		if !ok {
			// Failure already routed through handleFailure, or ctx is done.
			if ctx.Err() != nil {
				c.setState(StateClosing)
				return
			}
			continue
		}

		// Open: read until the connection dies. Heartbeat timeout force-
		// closes the transport, which surfaces here as a read error; all
		// failure flavors unify into the same backoff path.
		c.monitor.Start(func() {
			c.Logger.Warning("Heartbeat timeout for %s, closing transport", c.Symbol)
			conn.Close()
		}, func() {
			c.Logger.Debug("Heartbeat check passed for %s", c.Symbol)
		})

		err := c.pump(ctx, conn)
		c.monitor.Stop()
		conn.Close()

		if ctx.Err() != nil {
			c.setState(StateClosing)
			return
		}

		c.Logger.Info("Connection lost for %s: %v", c.Symbol, err)
		if !c.handleFailure(ctx, fmt.Sprintf("read: %v", err)) {
			c.setState(StateClosing)
			return
		}
	}
}

// -----------------------------------------------------------------------------

// connect performs one dial attempt against the active endpoint. On success
// it records latency, resets the backoff controller and enters Open. On
// failure it routes through handleFailure and reports false.
func (c *StreamClient) connect(ctx context.Context) (interfaces.IStreamConn, bool) {
	c.mu.Lock()
	endpoint := c.endpoint
	c.mu.Unlock()

	url := c.resolver.URL(endpoint, c.Symbol)
	timeout := c.quality.RecommendedTimeout()

	c.setState(StateConnecting)
	c.journalEvent(models.EventConnecting, url)
	c.Logger.Info("Connecting to %s via %s (timeout %v)", c.Symbol, endpoint, timeout)

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := c.dialer.Dial(dialCtx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false
		}
		c.Logger.Warning("Dial failed for %s via %s: %v", c.Symbol, endpoint, err)
		c.handleFailure(ctx, fmt.Sprintf("dial: %v", err))
		return nil, false
	}

	latency := time.Since(start)
	c.quality.RecordConnectTime(latency)
	c.journalSample(endpoint, latency)

	c.backoff.Reset()
	c.mu.Lock()
	c.consecFails = 0
	c.mu.Unlock()
	c.connectCount.Add(1)

	c.setState(StateOpen)
	c.journalEvent(models.EventOpen, fmt.Sprintf("latency=%dms", latency.Milliseconds()))
	c.Logger.Info("Connected %s via %s in %v (quality: %s)", c.Symbol, endpoint, latency, c.quality.Quality())
	return conn, true
}

// -----------------------------------------------------------------------------

// pump is the Open steady state: every inbound frame feeds the heartbeat
// monitor; ticker frames become cache entries and live updates; malformed
// frames are dropped silently.
func (c *StreamClient) pump(ctx context.Context, conn interfaces.IStreamConn) error {
	// Unblock ReadMessage when the consumer unsubscribes.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()
	defer close(watchDone)

	c.mu.Lock()
	source := c.endpoint.String()
	c.mu.Unlock()

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		// Any traffic counts as liveness, confirmations included.
		c.monitor.RecordPong()

		tick, kind := parseFrame(c.Symbol, source, raw)
		if kind != frameTicker {
			continue
		}

		c.cache.Set(c.Symbol, tick)
		c.deliver(ctx, models.MTickUpdate{
			Symbol:       tick.Symbol,
			Price:        tick.Price,
			Change24h:    tick.Change24h,
			High24h:      tick.High24h,
			Low24h:       tick.Low24h,
			Volume:       tick.Volume,
			LastUpdate:   tick.Timestamp,
			IsLive:       true,
			IsConnecting: false,
			Source:       tick.Source,
		})
	}
}

// -----------------------------------------------------------------------------

// handleFailure is the unified Backoff transition. It serves the cached tick
// when one exists, applies the endpoint-switch policy, then sleeps out the
// backoff delay — or demotes to Offline once the attempt ceiling is passed.
// Returns false when the context was cancelled during the wait.
func (c *StreamClient) handleFailure(ctx context.Context, detail string) bool {
	c.serveCached(ctx)

	// Endpoint-switch policy: flip after K consecutive failures on the
	// active endpoint, and keep alternating indefinitely.
	c.mu.Lock()
	c.consecFails++
	if c.consecFails >= c.Config.EndpointSwitchFailures {
		c.endpoint = c.otherEndpoint()
		c.consecFails = 0
		switched := c.endpoint
		c.mu.Unlock()
		c.Logger.Info("Switching %s to %s endpoint", c.Symbol, switched)
		c.journalEvent(models.EventEndpointSwitch, switched.String())
	} else {
		c.mu.Unlock()
	}

	delay := c.backoff.NextDelay()
	attempt := c.backoff.CurrentAttempt()

	if attempt > c.Config.MaxAttempts {
		return c.enterOffline(ctx, detail)
	}

	c.setState(StateBackoff)
	c.journalEvent(models.EventBackoff, detail)
	c.Logger.Info("Backing off %s for %v (attempt %d/%d)", c.Symbol, delay, attempt, c.Config.MaxAttempts)

	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

// -----------------------------------------------------------------------------

// enterOffline emits the final degraded status and schedules exactly one
// long-horizon retry that resets backoff state and endpoint selection.
// Offline always leads back to Connecting.
func (c *StreamClient) enterOffline(ctx context.Context, detail string) bool {
	c.setState(StateOffline)
	c.journalEvent(models.EventOffline, detail)
	c.Logger.Warning("Stream %s is offline after %d attempts", c.Symbol, c.backoff.CurrentAttempt())

	c.deliver(ctx, c.offlineUpdate())

	retry := time.Duration(c.Config.OfflineRetrySeconds) * time.Second
	if c.gate != nil && !c.gate.MarketOpen(c.Symbol) {
		retry *= sessionClosedFactor
		c.Logger.Info("Market closed for %s, stretching offline retry to %v", c.Symbol, retry)
	}

	select {
	case <-ctx.Done():
		return false
	case <-time.After(retry):
	}

	c.backoff.Reset()
	c.mu.Lock()
	c.endpoint = EndpointRelay
	c.consecFails = 0
	c.mu.Unlock()
	return true
}

// -----------------------------------------------------------------------------

// serveCached forwards the last-known-good tick during an outage, flagged as
// not live. Entries past TTL are still served; age decides the label, and
// consumers see the source as "cached" either way.
func (c *StreamClient) serveCached(ctx context.Context) {
	tick, ok := c.cache.Get(c.Symbol)
	if !ok {
		return
	}

	c.deliver(ctx, models.MTickUpdate{
		Symbol:       tick.Symbol,
		Price:        tick.Price,
		Change24h:    tick.Change24h,
		High24h:      tick.High24h,
		Low24h:       tick.Low24h,
		Volume:       tick.Volume,
		LastUpdate:   tick.Timestamp,
		IsLive:       false,
		IsConnecting: true,
		Source:       models.SourceCached,
	})
}

// -----------------------------------------------------------------------------

// offlineUpdate builds the Offline status event: cached values when we have
// them, caller-supplied fallbacks otherwise.
func (c *StreamClient) offlineUpdate() models.MTickUpdate {
	update := models.MTickUpdate{
		Symbol:       c.Symbol,
		Price:        c.Config.FallbackPrice,
		Change24h:    c.Config.FallbackChange,
		LastUpdate:   time.Now().UTC(),
		IsLive:       false,
		IsConnecting: false,
		Source:       models.SourceOffline,
	}

	if tick, ok := c.cache.Get(c.Symbol); ok {
		update.Price = tick.Price
		update.Change24h = tick.Change24h
		update.High24h = tick.High24h
		update.Low24h = tick.Low24h
		update.Volume = tick.Volume
		update.LastUpdate = tick.Timestamp
	}
	return update
}

// -----------------------------------------------------------------------------

// deliver pushes one update to the consumer channel. Never emits after
// teardown; drops instead of blocking when the consumer lags.
func (c *StreamClient) deliver(ctx context.Context, update models.MTickUpdate) {
	if ctx.Err() != nil {
		return
	}

	select {
	case c.updates <- update:
	default:
		c.Logger.Warning("Update buffer full for %s, dropping event", c.Symbol)
	}
}

// -----------------------------------------------------------------------------

func (c *StreamClient) otherEndpoint() Endpoint {
	if c.endpoint == EndpointRelay {
		return EndpointDirect
	}
	return EndpointRelay
}

// -----------------------------------------------------------------------------

func (c *StreamClient) setState(s ConnState) {
	c.state.Store(int32(s))
}

// -----------------------------------------------------------------------------

// State returns the current connection state.
func (c *StreamClient) State() ConnState {
	return ConnState(c.state.Load())
}

// -----------------------------------------------------------------------------
// Journal plumbing. Best-effort: a journal hiccup must never reach the state
// machine.
// -----------------------------------------------------------------------------

func (c *StreamClient) journalEvent(kind, detail string) {
	if c.journal == nil {
		return
	}

	c.mu.Lock()
	endpoint := c.endpoint.String()
	c.mu.Unlock()

	event := models.MStreamEvent{
		Symbol:    c.Symbol,
		Kind:      kind,
		Endpoint:  endpoint,
		Attempt:   c.backoff.CurrentAttempt(),
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	c.errs.Handle(c.journal.SaveEvent(event), "event journal")
}

// -----------------------------------------------------------------------------

func (c *StreamClient) journalSample(endpoint Endpoint, latency time.Duration) {
	if c.journal == nil {
		return
	}

	sample := models.MQualitySample{
		Symbol:    c.Symbol,
		Endpoint:  endpoint.String(),
		LatencyMs: latency.Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}
	c.errs.Handle(c.journal.SaveQualitySample(sample), "quality journal")
}
