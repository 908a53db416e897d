package storage

import (
	"path/filepath"
	"testing"
	"time"

	"tick-stream/src/logger"
	"tick-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()

	cfg := &models.MConfig{
		Storage: models.MStorageConfig{
			DBType: "sqlite",
			DBPath: filepath.Join(t.TempDir(), "journal.db"),
		},
	}

	j, err := NewSQLiteJournal(cfg, logger.NewLogger(nil, "test"))
	require.NoError(t, err)
	require.NoError(t, j.Initialize())
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalSaveEvent(t *testing.T) {
	j := openTestJournal(t)

	err := j.SaveEvent(models.MStreamEvent{
		Symbol:    "BTCUSDT",
		Kind:      models.EventBackoff,
		Endpoint:  "relay",
		Attempt:   3,
		Detail:    "dial: connection refused",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, j.DB.QueryRow("SELECT COUNT(*) FROM stream_events").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestJournalSaveQualitySample(t *testing.T) {
	j := openTestJournal(t)

	err := j.SaveQualitySample(models.MQualitySample{
		Symbol:    "BTCUSDT",
		Endpoint:  "direct",
		LatencyMs: 250,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	var latency int64
	require.NoError(t, j.DB.QueryRow("SELECT latency_ms FROM quality_samples").Scan(&latency))
	assert.Equal(t, int64(250), latency)
}

func TestJournalCleanupSweepsOldEvents(t *testing.T) {
	j := openTestJournal(t)

	old := time.Now().UTC().AddDate(0, 0, -(journalRetentionDays + 1))
	require.NoError(t, j.SaveEvent(models.MStreamEvent{
		Symbol: "BTCUSDT", Kind: models.EventOffline, Endpoint: "relay", CreatedAt: old,
	}))
	require.NoError(t, j.SaveEvent(models.MStreamEvent{
		Symbol: "BTCUSDT", Kind: models.EventOpen, Endpoint: "relay", CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, j.CleanupOldEvents())

	var count int
	require.NoError(t, j.DB.QueryRow("SELECT COUNT(*) FROM stream_events").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestJournalInitializeIsIdempotent(t *testing.T) {
	j := openTestJournal(t)
	// Re-running the migration against an existing schema must not fail.
	require.NoError(t, j.createTables())
}
