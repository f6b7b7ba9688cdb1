// Package store provides persistence backends for call records.
//
// Persistence is fire-and-forget from the call's perspective: the session
// driver logs store failures and never lets them affect the call outcome.
package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/voxloop/voxloop/internal/models"
)

// Store is the persistence contract for call records.
type Store interface {
	SaveCallRecord(ctx context.Context, rec models.CallRecord) error
	GetCallRecord(ctx context.Context, sessionID string) (*models.CallRecord, error)
	ListCallRecords(ctx context.Context, limit int) ([]models.CallRecord, error)
	Close() error
}

// Opts holds configuration options shared by the store backends.
type Opts struct {
	// DSN is the connection string: a file path for SQLite, a postgres://
	// URL for Postgres, a mongodb:// URI for Mongo, or a directory for the
	// JSON file store.
	DSN string
	// Database is the Mongo database name.
	Database string
}

// Option configures a store backend.
type Option func(*Opts)

// WithDSN sets the backend connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithDatabase sets the database name (Mongo only).
func WithDatabase(name string) Option {
	return func(o *Opts) { o.Database = name }
}

// InMemoryStore keeps call records in memory. Used in tests and as the
// fallback when no persistence is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.CallRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]models.CallRecord)}
}

// SaveCallRecord stores or replaces the record for its session ID.
func (s *InMemoryStore) SaveCallRecord(ctx context.Context, rec models.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.SessionID] = rec
	slog.Debug("InMemoryStore.SaveCallRecord: saved", "sessionID", rec.SessionID)
	return nil
}

// GetCallRecord returns the record for a session ID, or nil when absent.
func (s *InMemoryStore) GetCallRecord(ctx context.Context, sessionID string) (*models.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// ListCallRecords returns records newest first, up to limit (0 = all).
func (s *InMemoryStore) ListCallRecords(ctx context.Context, limit int) ([]models.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]models.CallRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
