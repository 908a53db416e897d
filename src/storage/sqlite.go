package storage

import (
	"database/sql"
	"fmt"
	"time"

	"tick-stream/src/helpers"
	"tick-stream/src/interfaces"
	"tick-stream/src/logger"
	"tick-stream/src/models"

	_ "modernc.org/sqlite"
)

// Events older than this are swept by CleanupOldEvents.
const journalRetentionDays = 7

// Compile-time interface checks
var (
	_ interfaces.IEventJournal = (*SQLiteJournal)(nil)
	_ interfaces.IEventJournal = (*PostgresJournal)(nil)
)

// -----------------------------------------------------------------------------

type SQLiteJournal struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteJournal(cfg *models.MConfig, log *logger.Logger) (*SQLiteJournal, error) {
	return &SQLiteJournal{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (j *SQLiteJournal) Initialize() error {
	dsn := j.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewStorageError("failed to open sqlite journal", err)
	}

	if err := db.Ping(); err != nil {
		return helpers.NewStorageError("sqlite journal unreachable", err)
	}

	j.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		j.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		j.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return j.createTables()
}

// -----------------------------------------------------------------------------

func (j *SQLiteJournal) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS stream_events (
			symbol TEXT,
			kind TEXT,
			endpoint TEXT,
			attempt INTEGER,
			detail TEXT,
			created_at INTEGER
		);
	`
	if _, err := j.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create stream_events: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS quality_samples (
			symbol TEXT,
			endpoint TEXT,
			latency_ms INTEGER,
			created_at INTEGER
		);
	`
	if _, err := j.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create quality_samples: %w", err)
	}

	query = `CREATE INDEX IF NOT EXISTS idx_stream_events_symbol ON stream_events (symbol, created_at);`
	if _, err := j.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create event index: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (j *SQLiteJournal) SaveEvent(event models.MStreamEvent) error {
	_, err := j.DB.Exec(`
		INSERT INTO stream_events (symbol, kind, endpoint, attempt, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.Symbol, event.Kind, event.Endpoint, event.Attempt, event.Detail, event.CreatedAt.Unix())
	return err
}

// -----------------------------------------------------------------------------

func (j *SQLiteJournal) SaveQualitySample(sample models.MQualitySample) error {
	_, err := j.DB.Exec(`
		INSERT INTO quality_samples (symbol, endpoint, latency_ms, created_at)
		VALUES (?, ?, ?, ?)
	`, sample.Symbol, sample.Endpoint, sample.LatencyMs, sample.CreatedAt.Unix())
	return err
}

// -----------------------------------------------------------------------------

func (j *SQLiteJournal) CleanupOldEvents() error {
	cutoff := time.Now().UTC().AddDate(0, 0, -journalRetentionDays).Unix()

	if _, err := j.DB.Exec("DELETE FROM stream_events WHERE created_at < ?", cutoff); err != nil {
		j.Logger.Error("Cleanup stream_events error: %v", err)
	}
	if _, err := j.DB.Exec("DELETE FROM quality_samples WHERE created_at < ?", cutoff); err != nil {
		j.Logger.Error("Cleanup quality_samples error: %v", err)
	}

	j.Logger.Info("Journal cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (j *SQLiteJournal) Close() error {
	if j.DB != nil {
		return j.DB.Close()
	}
	return nil
}
