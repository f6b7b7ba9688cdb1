package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/voxloop/voxloop/internal/models"
	"github.com/voxloop/voxloop/internal/store"
)

type mockDialer struct {
	to  string
	sid string
	err error
}

func (m *mockDialer) Dial(ctx context.Context, to string) (string, error) {
	m.to = to
	return m.sid, m.err
}

func seededStore(t *testing.T) store.Store {
	t.Helper()
	st := store.NewInMemoryStore()
	records := []models.CallRecord{
		{SessionID: "call-1", CallerID: "1001", Status: models.OutcomeCompleted, CreatedAt: time.Now().Add(-time.Hour)},
		{SessionID: "call-2", CallerID: "1002", Status: models.OutcomeEndedEarly, CreatedAt: time.Now()},
	}
	for _, rec := range records {
		if err := st.SaveCallRecord(context.Background(), rec); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	return st
}

func TestHealth(t *testing.T) {
	srv := NewServer("", store.NewInMemoryStore(), nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestListCalls(t *testing.T) {
	srv := NewServer("", seededStore(t), nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/calls", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var records []models.CallRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].SessionID != "call-2" {
		t.Errorf("expected newest first, got %q", records[0].SessionID)
	}
}

func TestListCallsLimit(t *testing.T) {
	srv := NewServer("", seededStore(t), nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/calls?limit=1", nil))

	var records []models.CallRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestListCallsInvalidLimit(t *testing.T) {
	srv := NewServer("", seededStore(t), nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/calls?limit=zero", nil))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestGetCall(t *testing.T) {
	srv := NewServer("", seededStore(t), nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/calls/call-1", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var rec models.CallRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.CallerID != "1001" {
		t.Errorf("unexpected caller %q", rec.CallerID)
	}
}

func TestGetCallNotFound(t *testing.T) {
	srv := NewServer("", seededStore(t), nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/calls/nope", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestDial(t *testing.T) {
	d := &mockDialer{sid: "CA42"}
	srv := NewServer("", seededStore(t), d)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/calls/dial", strings.NewReader(`{"to":"+919800011111"}`))
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	if d.to != "+919800011111" {
		t.Errorf("dialer got %q", d.to)
	}
}

func TestDialWithoutDialer(t *testing.T) {
	srv := NewServer("", seededStore(t), nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/calls/dial", strings.NewReader(`{"to":"+919800011111"}`))
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rr.Code)
	}
}

func TestDialBadRequest(t *testing.T) {
	srv := NewServer("", seededStore(t), &mockDialer{})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/calls/dial", strings.NewReader(`{}`))
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestDialFailure(t *testing.T) {
	srv := NewServer("", seededStore(t), &mockDialer{err: errors.New("twilio down")})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/calls/dial", strings.NewReader(`{"to":"+919800011111"}`))
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := NewServer("", seededStore(t), nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/calls", nil))

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}
