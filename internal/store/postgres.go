// Package store provides persistence backends for call records.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/voxloop/voxloop/internal/models"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists call records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres store from the provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("PostgresStore failed to open connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore initialized")
	return &PostgresStore{db: db}, nil
}

// SaveCallRecord upserts the record for its session ID.
func (s *PostgresStore) SaveCallRecord(ctx context.Context, rec models.CallRecord) error {
	answers, transcript, err := marshalRecordBlobs(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO call_records (session_id, caller_id, status, final_message, answers, transcript, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id) DO UPDATE SET
		   caller_id = EXCLUDED.caller_id,
		   status = EXCLUDED.status,
		   final_message = EXCLUDED.final_message,
		   answers = EXCLUDED.answers,
		   transcript = EXCLUDED.transcript`,
		rec.SessionID, rec.CallerID, string(rec.Status), rec.FinalMessage, answers, transcript, rec.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore.SaveCallRecord failed", "error", err, "sessionID", rec.SessionID)
		return fmt.Errorf("failed to save call record %s: %w", rec.SessionID, err)
	}
	slog.Debug("PostgresStore.SaveCallRecord succeeded", "sessionID", rec.SessionID, "status", rec.Status)
	return nil
}

// GetCallRecord returns the record for a session ID, or nil when absent.
func (s *PostgresStore) GetCallRecord(ctx context.Context, sessionID string) (*models.CallRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, caller_id, status, final_message, answers, transcript, created_at
		 FROM call_records WHERE session_id = $1`, sessionID)
	rec, err := scanCallRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetCallRecord failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	return rec, nil
}

// ListCallRecords returns records newest first, up to limit (0 = all).
func (s *PostgresStore) ListCallRecords(ctx context.Context, limit int) ([]models.CallRecord, error) {
	query := `SELECT session_id, caller_id, status, final_message, answers, transcript, created_at
		 FROM call_records ORDER BY created_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		slog.Error("PostgresStore.ListCallRecords query failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	return collectCallRecords(rows)
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
