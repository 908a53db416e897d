package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tick-stream/src/interfaces"
	"tick-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type fakeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn(frames ...string) *fakeConn {
	c := &fakeConn{
		frames: make(chan []byte, len(frames)+1),
		closed: make(chan struct{}),
	}
	for _, f := range frames {
		c.frames <- []byte(f)
	}
	return c
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// -----------------------------------------------------------------------------

type fakeDialer struct {
	mu     sync.Mutex
	urls   []string
	onDial func(call int, url string) (interfaces.IStreamConn, error)
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (interfaces.IStreamConn, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	call := len(d.urls)
	fn := d.onDial
	d.mu.Unlock()
	return fn(call, url)
}

func (d *fakeDialer) urlCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) urlAt(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.urls[i]
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func testStreamConfig() models.MStreamConfig {
	cfg := models.DefaultStreamConfig()
	cfg.BackoffBaseMs = 1
	cfg.BackoffCapMs = 4
	cfg.BackoffJitter = 0
	cfg.ConnectTimeoutBaseSeconds = 1
	cfg.OfflineRetrySeconds = 1
	cfg.UpdateBufferSize = 64
	return cfg
}

func recvUpdate(t *testing.T, ch <-chan models.MTickUpdate) models.MTickUpdate {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "updates channel closed unexpectedly")
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return models.MTickUpdate{}
	}
}

const tickerFrameJSON = `{"s":"BTCUSDT","c":"50000.5","P":"1.2","h":"51000","l":"49000","q":"12345"}`

// -----------------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------------

func TestClientDeliversLiveTicks(t *testing.T) {
	conn := newFakeConn(tickerFrameJSON)
	dialer := &fakeDialer{
		onDial: func(int, string) (interfaces.IStreamConn, error) { return conn, nil },
	}

	client := NewStreamClient("BTCUSDT", testStreamConfig(), dialer, nil, nil)
	var wg sync.WaitGroup
	require.NoError(t, client.Start(context.Background(), &wg))

	update := recvUpdate(t, client.Updates())
	assert.Equal(t, "BTCUSDT", update.Symbol)
	assert.Equal(t, 50000.5, update.Price)
	assert.True(t, update.IsLive)
	assert.False(t, update.IsConnecting)
	assert.Equal(t, models.SourceRelay, update.Source)
	assert.Equal(t, StateOpen, client.State())

	require.NoError(t, client.Stop())
	wg.Wait()

	// Channel must be closed after teardown.
	for range client.Updates() {
	}
}

func TestClientServesCachedThenGoesOffline(t *testing.T) {
	cfg := testStreamConfig()
	cfg.MaxAttempts = 1

	conn := newFakeConn(tickerFrameJSON)
	dialer := &fakeDialer{
		onDial: func(call int, _ string) (interfaces.IStreamConn, error) {
			if call == 1 {
				return conn, nil
			}
			return nil, errors.New("dial refused")
		},
	}

	client := NewStreamClient("BTCUSDT", cfg, dialer, nil, nil)
	var wg sync.WaitGroup
	require.NoError(t, client.Start(context.Background(), &wg))

	live := recvUpdate(t, client.Updates())
	require.True(t, live.IsLive)

	// Drop the connection: the outage path serves the cached tick, flagged
	// not live, until the attempt ceiling demotes the stream to Offline.
	conn.Close()

	cached := recvUpdate(t, client.Updates())
	assert.Equal(t, models.SourceCached, cached.Source)
	assert.False(t, cached.IsLive)
	assert.True(t, cached.IsConnecting)
	assert.Equal(t, 50000.5, cached.Price)

	var offline models.MTickUpdate
	for {
		u := recvUpdate(t, client.Updates())
		if u.Source == models.SourceOffline {
			offline = u
			break
		}
		assert.Equal(t, models.SourceCached, u.Source)
	}

	// Offline keeps the cached values rather than the fallbacks.
	assert.Equal(t, 50000.5, offline.Price)
	assert.False(t, offline.IsLive)
	assert.False(t, offline.IsConnecting)
	assert.Equal(t, StateOffline, client.State())

	require.NoError(t, client.Stop())
	wg.Wait()
}

func TestClientOfflineFallbackWithoutCache(t *testing.T) {
	cfg := testStreamConfig()
	cfg.MaxAttempts = 2
	cfg.FallbackPrice = 42.5
	cfg.FallbackChange = -1

	dialer := &fakeDialer{
		onDial: func(int, string) (interfaces.IStreamConn, error) {
			return nil, errors.New("dial refused")
		},
	}

	client := NewStreamClient("BTCUSDT", cfg, dialer, nil, nil)
	var wg sync.WaitGroup
	require.NoError(t, client.Start(context.Background(), &wg))

	// Nothing was ever cached, so the only event is the Offline fallback.
	update := recvUpdate(t, client.Updates())
	assert.Equal(t, models.SourceOffline, update.Source)
	assert.Equal(t, 42.5, update.Price)
	assert.Equal(t, -1.0, update.Change24h)
	assert.False(t, update.IsLive)

	require.NoError(t, client.Stop())
	wg.Wait()
}

func TestClientOfflineRecoversToConnecting(t *testing.T) {
	cfg := testStreamConfig()
	cfg.MaxAttempts = 2
	cfg.EndpointSwitchFailures = 2

	// Fail every dial until Offline is observed, then start succeeding.
	var healthy atomic.Bool
	dialer := &fakeDialer{
		onDial: func(int, string) (interfaces.IStreamConn, error) {
			if healthy.Load() {
				return newFakeConn(tickerFrameJSON), nil
			}
			return nil, errors.New("dial refused")
		},
	}

	client := NewStreamClient("BTCUSDT", cfg, dialer, nil, nil)
	var wg sync.WaitGroup
	require.NoError(t, client.Start(context.Background(), &wg))

	// Nothing cached, so the first event is the Offline status. The switch
	// policy has already flipped the stream to the direct endpoint by then.
	update := recvUpdate(t, client.Updates())
	require.Equal(t, models.SourceOffline, update.Source)
	healthy.Store(true)

	// Offline is not a dead end: the long-horizon retry leads back to
	// Connecting with backoff and endpoint selection reset.
	live := recvUpdate(t, client.Updates())
	assert.True(t, live.IsLive)
	assert.Equal(t, 50000.5, live.Price)
	assert.Equal(t, models.SourceRelay, live.Source)

	status := client.Status()
	assert.Equal(t, "Open", status.State)
	assert.Equal(t, "relay", status.Endpoint)
	assert.Equal(t, 0, status.Attempt)

	require.NoError(t, client.Stop())
	wg.Wait()
}

func TestClientHeartbeatTimeoutForcesReconnect(t *testing.T) {
	cfg := testStreamConfig()
	cfg.HeartbeatIntervalSeconds = 1
	cfg.HeartbeatTimeoutSeconds = 1

	// First connection goes silent; a silent transport must be force-closed
	// and re-dialed like any other failure.
	silent := newFakeConn()
	dialer := &fakeDialer{
		onDial: func(call int, _ string) (interfaces.IStreamConn, error) {
			if call == 1 {
				return silent, nil
			}
			return newFakeConn(tickerFrameJSON), nil
		},
	}

	client := NewStreamClient("BTCUSDT", cfg, dialer, nil, nil)
	var wg sync.WaitGroup
	require.NoError(t, client.Start(context.Background(), &wg))

	live := recvUpdate(t, client.Updates())
	assert.True(t, live.IsLive)
	assert.Equal(t, 50000.5, live.Price)
	assert.GreaterOrEqual(t, dialer.urlCount(), 2, "expected a reconnect after the silent connection")

	require.NoError(t, client.Stop())
	wg.Wait()
}

func TestClientSwitchesEndpointAfterConsecutiveFailures(t *testing.T) {
	cfg := testStreamConfig()
	cfg.MaxAttempts = 100
	cfg.EndpointSwitchFailures = 3

	dialer := &fakeDialer{
		onDial: func(int, string) (interfaces.IStreamConn, error) {
			return nil, errors.New("dial refused")
		},
	}

	client := NewStreamClient("BTCUSDT", cfg, dialer, nil, nil)
	var wg sync.WaitGroup
	require.NoError(t, client.Start(context.Background(), &wg))

	deadline := time.Now().Add(3 * time.Second)
	for dialer.urlCount() < 9 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.GreaterOrEqual(t, dialer.urlCount(), 9, "expected at least 9 dial attempts")

	require.NoError(t, client.Stop())
	wg.Wait()

	// Three failures per endpoint, alternating relay -> direct -> relay.
	for i := 0; i < 3; i++ {
		assert.True(t, strings.Contains(dialer.urlAt(i), "relay"), "attempt %d: %s", i, dialer.urlAt(i))
	}
	for i := 3; i < 6; i++ {
		assert.True(t, strings.Contains(dialer.urlAt(i), "@ticker"), "attempt %d: %s", i, dialer.urlAt(i))
	}
	for i := 6; i < 9; i++ {
		assert.True(t, strings.Contains(dialer.urlAt(i), "relay"), "attempt %d: %s", i, dialer.urlAt(i))
	}
}

func TestClientStatusSnapshot(t *testing.T) {
	client := NewStreamClient("BTCUSDT", testStreamConfig(), &fakeDialer{}, nil, nil)

	status := client.Status()
	assert.Equal(t, "BTCUSDT", status.Symbol)
	assert.Equal(t, "Idle", status.State)
	assert.Equal(t, "relay", status.Endpoint)
	assert.Equal(t, 0, status.Attempt)
	assert.Equal(t, "Fair", status.Quality)
	assert.False(t, status.HasCached)
	assert.Zero(t, status.ConnectCount)
}

func TestClientStopDuringBackoff(t *testing.T) {
	cfg := testStreamConfig()
	cfg.BackoffBaseMs = 200
	cfg.BackoffCapMs = 400

	dialer := &fakeDialer{
		onDial: func(int, string) (interfaces.IStreamConn, error) {
			return nil, errors.New("dial refused")
		},
	}

	client := NewStreamClient("BTCUSDT", cfg, dialer, nil, nil)
	var wg sync.WaitGroup
	require.NoError(t, client.Start(context.Background(), &wg))

	deadline := time.Now().Add(2 * time.Second)
	for client.State() != StateBackoff && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, StateBackoff, client.State())

	// Stop with a pending backoff timer: the run loop must abandon the wait
	// and close the channel without emitting anything.
	require.NoError(t, client.Stop())
	wg.Wait()

	count := 0
	for range client.Updates() {
		count++
	}
	assert.Zero(t, count)
	assert.Equal(t, StateIdle, client.State())
}

func TestClientDoubleStartAndStop(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{
		onDial: func(int, string) (interfaces.IStreamConn, error) { return conn, nil },
	}

	client := NewStreamClient("BTCUSDT", testStreamConfig(), dialer, nil, nil)
	var wg sync.WaitGroup
	require.NoError(t, client.Start(context.Background(), &wg))
	assert.Error(t, client.Start(context.Background(), &wg))

	require.NoError(t, client.Stop())
	assert.Error(t, client.Stop())
	wg.Wait()
}
