package store

import (
	"context"
	"testing"
	"time"

	"github.com/voxloop/voxloop/internal/models"
)

func sampleRecord(id string, at time.Time) models.CallRecord {
	return models.CallRecord{
		SessionID:    id,
		CallerID:     "1001",
		Status:       models.OutcomeCompleted,
		FinalMessage: "Thanks!",
		Answers:      map[string]string{"loc": "pune"},
		Transcript: []models.Message{
			{Role: "assistant", Content: "Which location?", Timestamp: at},
			{Role: "user", Content: "pune", Timestamp: at},
		},
		CreatedAt: at,
	}
}

// roundTrip exercises the Store contract against any backend.
func roundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := s.SaveCallRecord(ctx, sampleRecord("call-1", now.Add(-time.Minute))); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveCallRecord(ctx, sampleRecord("call-2", now)); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, err := s.GetCallRecord(ctx, "call-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec == nil || rec.Answers["loc"] != "pune" {
		t.Errorf("expected stored answers to round-trip, got %v", rec)
	}
	if len(rec.Transcript) != 2 {
		t.Errorf("expected transcript to round-trip, got %d entries", len(rec.Transcript))
	}

	missing, err := s.GetCallRecord(ctx, "nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing record, got %v", missing)
	}

	records, err := s.ListCallRecords(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].SessionID != "call-2" {
		t.Errorf("expected newest first, got %s", records[0].SessionID)
	}

	limited, err := s.ListCallRecords(ctx, 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 record with limit, got %d", len(limited))
	}
}

func TestInMemoryStore(t *testing.T) {
	roundTrip(t, NewInMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(WithDSN(t.TempDir()))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	roundTrip(t, s)
}

func TestFileStoreRequiresDir(t *testing.T) {
	if _, err := NewFileStore(); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error for missing DSN")
	}
}

func TestPostgresStoreRequiresDSN(t *testing.T) {
	if _, err := NewPostgresStore(); err == nil {
		t.Error("expected error for missing DSN")
	}
}

func TestMongoStoreRequiresURI(t *testing.T) {
	if _, err := NewMongoStore(); err == nil {
		t.Error("expected error for missing URI")
	}
}

func TestSaveOverwritesExisting(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	rec := sampleRecord("call-1", time.Now())
	if err := s.SaveCallRecord(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec.Status = models.OutcomeEndedEarly
	if err := s.SaveCallRecord(ctx, rec); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, err := s.GetCallRecord(ctx, "call-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.OutcomeEndedEarly {
		t.Errorf("expected overwrite, got %s", got.Status)
	}
}
