package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tick-stream/src/helpers"
	"tick-stream/src/logger"
	"tick-stream/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresJournal struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresJournal(cfg *models.MConfig, log *logger.Logger) (*PostgresJournal, error) {
	// Schema named after the executable so several deployments can share one
	// database.
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresJournal{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (j *PostgresJournal) Initialize() error {
	dsn := j.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewStorageError("failed to open postgres journal", err)
	}

	if err := db.Ping(); err != nil {
		return helpers.NewStorageError("postgres journal unreachable", err)
	}

	j.DB = db

	if _, err := j.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, j.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", j.Schema, err)
	}

	return j.createTables()
}

// -----------------------------------------------------------------------------

func (j *PostgresJournal) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".stream_events (
			symbol TEXT,
			kind TEXT,
			endpoint TEXT,
			attempt INTEGER,
			detail TEXT,
			created_at TIMESTAMPTZ
		);
	`, j.Schema)
	if _, err := j.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create stream_events: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".quality_samples (
			symbol TEXT,
			endpoint TEXT,
			latency_ms BIGINT,
			created_at TIMESTAMPTZ
		);
	`, j.Schema)
	if _, err := j.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create quality_samples: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_stream_events_symbol
		ON "%s".stream_events (symbol, created_at);
	`, j.Schema)
	if _, err := j.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create event index: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (j *PostgresJournal) SaveEvent(event models.MStreamEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s".stream_events (symbol, kind, endpoint, attempt, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, j.Schema)

	_, err := j.DB.Exec(query, event.Symbol, event.Kind, event.Endpoint, event.Attempt, event.Detail, event.CreatedAt)
	return err
}

// -----------------------------------------------------------------------------

func (j *PostgresJournal) SaveQualitySample(sample models.MQualitySample) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s".quality_samples (symbol, endpoint, latency_ms, created_at)
		VALUES ($1, $2, $3, $4)
	`, j.Schema)

	_, err := j.DB.Exec(query, sample.Symbol, sample.Endpoint, sample.LatencyMs, sample.CreatedAt)
	return err
}

// -----------------------------------------------------------------------------

func (j *PostgresJournal) CleanupOldEvents() error {
	cutoff := time.Now().UTC().AddDate(0, 0, -journalRetentionDays)

	query := fmt.Sprintf(`DELETE FROM "%s".stream_events WHERE created_at < $1`, j.Schema)
	if _, err := j.DB.Exec(query, cutoff); err != nil {
		j.Logger.Error("Cleanup stream_events error: %v", err)
	}

	query = fmt.Sprintf(`DELETE FROM "%s".quality_samples WHERE created_at < $1`, j.Schema)
	if _, err := j.DB.Exec(query, cutoff); err != nil {
		j.Logger.Error("Cleanup quality_samples error: %v", err)
	}

	j.Logger.Info("Journal cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (j *PostgresJournal) Close() error {
	if j.DB != nil {
		return j.DB.Close()
	}
	return nil
}
