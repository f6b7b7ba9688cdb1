// Package store provides persistence backends for call records.
//
// This file implements a JSON-file store writing one file per call, the
// simplest deployment option for single-box Asterisk installs.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/voxloop/voxloop/internal/models"
)

// FileStore writes each call record as call_<sessionID>.json under a
// directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at the DSN directory.
func NewFileStore(opts ...Option) (*FileStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("file store directory not set")
	}
	if err := os.MkdirAll(cfg.DSN, DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create file store directory: %w", err)
	}
	slog.Debug("FileStore initialized", "dir", cfg.DSN)
	return &FileStore{dir: cfg.DSN}, nil
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("call_%s.json", sessionID))
}

// SaveCallRecord writes the record to its JSON file.
func (s *FileStore) SaveCallRecord(ctx context.Context, rec models.CallRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal call record: %w", err)
	}
	if err := os.WriteFile(s.path(rec.SessionID), data, 0o644); err != nil {
		slog.Error("FileStore.SaveCallRecord failed", "error", err, "sessionID", rec.SessionID)
		return fmt.Errorf("failed to write call record %s: %w", rec.SessionID, err)
	}
	slog.Debug("FileStore.SaveCallRecord succeeded", "sessionID", rec.SessionID)
	return nil
}

// GetCallRecord reads the record for a session ID, or nil when absent.
func (s *FileStore) GetCallRecord(ctx context.Context, sessionID string) (*models.CallRecord, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec models.CallRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse call record %s: %w", sessionID, err)
	}
	return &rec, nil
}

// ListCallRecords reads all record files, newest first, up to limit (0 = all).
func (s *FileStore) ListCallRecords(ctx context.Context, limit int) ([]models.CallRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var records []models.CallRecord
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "call_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			slog.Warn("FileStore.ListCallRecords: skipping unreadable file", "file", name, "error", err)
			continue
		}
		var rec models.CallRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			slog.Warn("FileStore.ListCallRecords: skipping malformed file", "file", name, "error", err)
			continue
		}
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

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }
