// Package store provides persistence backends for call records.
//
// This file implements the SQLite-backed store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/voxloop/voxloop/internal/models"
)

// DefaultDirPermissions defines the permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists call records in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates an SQLite store. The DSN is the database file path;
// its directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("SQLiteStore failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore initialized", "dsn", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

// SaveCallRecord inserts or replaces the record for its session ID.
func (s *SQLiteStore) SaveCallRecord(ctx context.Context, rec models.CallRecord) error {
	answers, transcript, err := marshalRecordBlobs(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO call_records (session_id, caller_id, status, final_message, answers, transcript, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.CallerID, string(rec.Status), rec.FinalMessage, answers, transcript, rec.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore.SaveCallRecord failed", "error", err, "sessionID", rec.SessionID)
		return fmt.Errorf("failed to save call record %s: %w", rec.SessionID, err)
	}
	slog.Debug("SQLiteStore.SaveCallRecord succeeded", "sessionID", rec.SessionID, "status", rec.Status)
	return nil
}

// GetCallRecord returns the record for a session ID, or nil when absent.
func (s *SQLiteStore) GetCallRecord(ctx context.Context, sessionID string) (*models.CallRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, caller_id, status, final_message, answers, transcript, created_at
		 FROM call_records WHERE session_id = ?`, sessionID)
	rec, err := scanCallRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetCallRecord failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	return rec, nil
}

// ListCallRecords returns records newest first, up to limit (0 = all).
func (s *SQLiteStore) ListCallRecords(ctx context.Context, limit int) ([]models.CallRecord, error) {
	query := `SELECT session_id, caller_id, status, final_message, answers, transcript, created_at
		 FROM call_records ORDER BY created_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		slog.Error("SQLiteStore.ListCallRecords query failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	return collectCallRecords(rows)
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func marshalRecordBlobs(rec models.CallRecord) (answers, transcript []byte, err error) {
	answers, err = json.Marshal(rec.Answers)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal answers: %w", err)
	}
	transcript, err = json.Marshal(rec.Transcript)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal transcript: %w", err)
	}
	return answers, transcript, nil
}

func scanCallRecord(row rowScanner) (*models.CallRecord, error) {
	var rec models.CallRecord
	var status string
	var answers, transcript []byte
	if err := row.Scan(&rec.SessionID, &rec.CallerID, &status, &rec.FinalMessage, &answers, &transcript, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Status = models.OutcomeStatus(status)
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &rec.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
	}
	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &rec.Transcript); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
		}
	}
	return &rec, nil
}

func collectCallRecords(rows *sql.Rows) ([]models.CallRecord, error) {
	var records []models.CallRecord
	for rows.Next() {
		rec, err := scanCallRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
