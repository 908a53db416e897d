package stream

import (
	"context"
	"errors"
	"testing"

	"tick-stream/src/interfaces"
	"tick-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingDialer() *fakeDialer {
	return &fakeDialer{
		onDial: func(int, string) (interfaces.IStreamConn, error) {
			return nil, errors.New("dial refused")
		},
	}
}

func TestRegistryRefCounting(t *testing.T) {
	r := NewStreamRegistry(testStreamConfig(), failingDialer(), nil, nil, nil)
	require.NoError(t, r.Start(context.Background()))

	ch1, unsub1, err := r.Subscribe("BTCUSDT")
	require.NoError(t, err)
	ch2, unsub2, err := r.Subscribe("BTCUSDT")
	require.NoError(t, err)

	// Two subscribers share one stream.
	statuses := r.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, 2, statuses["BTCUSDT"].Subscribers)

	unsub1()
	unsub1() // idempotent
	statuses = r.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, 1, statuses["BTCUSDT"].Subscribers)

	// Last unsubscriber tears the stream down.
	unsub2()
	assert.Empty(t, r.Statuses())

	drainClosed(t, ch1)
	drainClosed(t, ch2)

	require.NoError(t, r.Stop())
}

func TestRegistrySeparateStreamsPerSymbol(t *testing.T) {
	r := NewStreamRegistry(testStreamConfig(), failingDialer(), nil, nil, nil)
	require.NoError(t, r.Start(context.Background()))

	_, unsubBTC, err := r.Subscribe("BTCUSDT")
	require.NoError(t, err)
	_, unsubETH, err := r.Subscribe("ETHUSDT")
	require.NoError(t, err)

	statuses := r.Statuses()
	assert.Len(t, statuses, 2)
	assert.Contains(t, statuses, "BTCUSDT")
	assert.Contains(t, statuses, "ETHUSDT")

	unsubBTC()
	unsubETH()
	require.NoError(t, r.Stop())
}

func TestRegistrySubscribeRequiresStart(t *testing.T) {
	r := NewStreamRegistry(testStreamConfig(), failingDialer(), nil, nil, nil)

	_, _, err := r.Subscribe("BTCUSDT")
	assert.Error(t, err)
}

func TestRegistryStopClosesSubscribers(t *testing.T) {
	r := NewStreamRegistry(testStreamConfig(), failingDialer(), nil, nil, nil)
	require.NoError(t, r.Start(context.Background()))

	ch, _, err := r.Subscribe("BTCUSDT")
	require.NoError(t, err)

	require.NoError(t, r.Stop())
	drainClosed(t, ch)

	// Stopped registry reports no streams.
	assert.Empty(t, r.Statuses())

	// Stopping twice is harmless.
	require.NoError(t, r.Stop())
}

func TestRegistryRestartAfterStop(t *testing.T) {
	r := NewStreamRegistry(testStreamConfig(), failingDialer(), nil, nil, nil)
	require.NoError(t, r.Start(context.Background()))

	_, _, err := r.Subscribe("BTCUSDT")
	require.NoError(t, err)
	require.NoError(t, r.Stop())

	// A new Start/Subscribe cycle must build a fresh stream, not resurrect
	// the one whose updates channel already closed.
	require.NoError(t, r.Start(context.Background()))
	ch, unsub, err := r.Subscribe("BTCUSDT")
	require.NoError(t, err)

	statuses := r.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, 1, statuses["BTCUSDT"].Subscribers)

	unsub()
	require.NoError(t, r.Stop())
	drainClosed(t, ch)
}

// drainClosed consumes a subscription channel and asserts it closes.
func drainClosed(t *testing.T, ch <-chan models.MTickUpdate) {
	t.Helper()
	for range ch {
	}
}
