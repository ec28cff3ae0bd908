// Package db archives finished research runs to Postgres for audit and
// offline analysis. Writes are best-effort: a failed archive write is
// logged and counted but never fails the research request that produced
// the result.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/researchpro/orchestrator/internal/metrics"
)

// Config holds database connection settings. DSN, when set, takes
// precedence over the individual fields.
type Config struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RunRecord is one archived research run.
type RunRecord struct {
	ID              uuid.UUID `db:"id"`
	SessionID       string    `db:"session_id"`
	UserID          string    `db:"user_id"`
	Query           string    `db:"query"`
	Status          string    `db:"status"`
	QualityScore    float64   `db:"quality_score"`
	SourcesCount    int       `db:"sources_count"`
	Iterations      int       `db:"iterations"`
	DurationSeconds float64   `db:"duration_seconds"`
	Error           string    `db:"error"`
	CreatedAt       time.Time `db:"created_at"`
}

// Writer persists run records.
type Writer struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewWriter connects to Postgres and returns a run writer.
func NewWriter(cfg Config, logger *zap.Logger) (*Writer, error) {
	dsn := cfg.DSN
	if dsn == "" {
		if cfg.SSLMode == "" {
			cfg.SSLMode = "disable"
		}
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewWriterFromDB(db, logger), nil
}

// NewWriterFromDB wraps an existing connection. Tests use this with
// sqlmock.
func NewWriterFromDB(db *sqlx.DB, logger *zap.Logger) *Writer {
	return &Writer{db: db, logger: logger}
}

// SaveRun inserts or updates a run record, idempotent by run id.
func (w *Writer) SaveRun(ctx context.Context, run *RunRecord) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	const query = `
		INSERT INTO research_runs (
			id, session_id, user_id, query, status,
			quality_score, sources_count, iterations,
			duration_seconds, error, created_at
		) VALUES (
			:id, :session_id, :user_id, :query, :status,
			:quality_score, :sources_count, :iterations,
			:duration_seconds, :error, :created_at
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			quality_score = EXCLUDED.quality_score,
			sources_count = EXCLUDED.sources_count,
			iterations = EXCLUDED.iterations,
			duration_seconds = EXCLUDED.duration_seconds,
			error = EXCLUDED.error`

	if _, err := w.db.NamedExecContext(ctx, query, run); err != nil {
		metrics.RunRecordWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to save run record: %w", err)
	}

	metrics.RunRecordWrites.WithLabelValues("ok").Inc()
	w.logger.Debug("Archived research run",
		zap.String("session_id", run.SessionID),
		zap.String("status", run.Status),
	)
	return nil
}

// RecentRuns returns the newest archived runs for a user.
func (w *Writer) RecentRuns(ctx context.Context, userID string, limit int) ([]RunRecord, error) {
	const query = `
		SELECT id, session_id, user_id, query, status,
		       quality_score, sources_count, iterations,
		       duration_seconds, error, created_at
		FROM research_runs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var runs []RunRecord
	if err := w.db.SelectContext(ctx, &runs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to load run records: %w", err)
	}
	return runs, nil
}

// Close releases the database connection.
func (w *Writer) Close() error {
	return w.db.Close()
}
