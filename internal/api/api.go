// Package api exposes a small HTTP surface for operating the voice bot:
// health, completed call records, and outbound dial requests.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/voxloop/voxloop/internal/dialer"
	"github.com/voxloop/voxloop/internal/store"
)

// DefaultAddr is the default HTTP listen address.
const DefaultAddr = ":8080"

const defaultListLimit = 50

// Server serves the admin endpoints over a store and an optional dialer.
type Server struct {
	addr   string
	store  store.Store
	dialer dialer.Dialer
	mux    *http.ServeMux
}

// NewServer creates the admin API server. The dialer may be nil, in which
// case POST /calls/dial returns 503.
func NewServer(addr string, st store.Store, d dialer.Dialer) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{addr: addr, store: st, dialer: d, mux: http.NewServeMux()}
	s.mux.HandleFunc("/health", s.healthHandler)
	s.mux.HandleFunc("/calls", s.callsHandler)
	s.mux.HandleFunc("/calls/dial", s.dialHandler)
	s.mux.HandleFunc("/calls/", s.callHandler)
	return s
}

// Handler returns the routing handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves HTTP until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("api.Server: shutdown failed", "error", err)
		}
	}()
	slog.Info("api.Server: listening", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) callsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	records, err := s.store.ListCallRecords(r.Context(), limit)
	if err != nil {
		slog.Error("api.Server: failed to list call records", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}
	writeJSONResponse(w, http.StatusOK, records)
}

func (s *Server) callHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := strings.TrimPrefix(r.URL.Path, "/calls/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		writeJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	rec, err := s.store.GetCallRecord(r.Context(), sessionID)
	if err != nil {
		slog.Error("api.Server: failed to load call record", "sessionID", sessionID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}
	if rec == nil {
		writeJSONResponse(w, http.StatusNotFound, map[string]string{"error": "call not found"})
		return
	}
	writeJSONResponse(w, http.StatusOK, rec)
}

type dialRequest struct {
	To string `json:"to"`
}

func (s *Server) dialHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.dialer == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"error": "outbound dialing not configured"})
		return
	}
	var req dialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.To == "" {
		writeJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "body must include a to number"})
		return
	}
	sid, err := s.dialer.Dial(r.Context(), req.To)
	if err != nil {
		slog.Error("api.Server: dial failed", "to", req.To, "error", err)
		writeJSONResponse(w, http.StatusBadGateway, map[string]string{"error": "dial failed"})
		return
	}
	writeJSONResponse(w, http.StatusAccepted, map[string]string{"sid": sid})
}

// writeJSONResponse marshals the response before touching headers so encoding
// errors can still produce a clean 500.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("api.writeJSONResponse: failed to marshal response", "error", err)
		jsonData = []byte(`{"error":"internal server error"}`)
		statusCode = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(jsonData); err != nil {
		slog.Error("api.writeJSONResponse: failed to write response", "error", err)
	}
}
