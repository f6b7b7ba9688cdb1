package agi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
)

// DefaultAddr is the conventional FastAGI listen address.
const DefaultAddr = ":4577"

// Handler runs one call. The session is closed when the handler returns.
type Handler func(ctx context.Context, s *Session)

// Server accepts FastAGI connections from Asterisk and runs one handler
// goroutine per call. Sessions are fully independent; the only shared state
// is the handler itself.
type Server struct {
	addr    string
	handler Handler
}

// NewServer creates a FastAGI server.
func NewServer(addr string, handler Handler) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{addr: addr, handler: handler}
}

// ListenAndServe accepts connections until the context is canceled, then
// closes the listener and waits for in-flight calls to finish.
func (srv *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", srv.addr)
	if err != nil {
		return err
	}
	slog.Info("agi.Server: listening", "addr", srv.addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			slog.Warn("agi.Server: accept failed", "error", err)
			continue
		}
		wg.Add(1)
		go func(conn net.Conn) {
			defer wg.Done()
			defer conn.Close()
			srv.serve(ctx, conn)
		}(conn)
	}

	wg.Wait()
	slog.Info("agi.Server: shut down", "addr", srv.addr)
	return nil
}

func (srv *Server) serve(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	session, err := NewSession(conn)
	if err != nil {
		slog.Error("agi.Server: failed to establish session", "remote", remote, "error", err)
		return
	}
	slog.Info("agi.Server: call started", "remote", remote, "uniqueid", session.UniqueID())
	srv.handler(ctx, session)
	slog.Info("agi.Server: call finished", "remote", remote, "uniqueid", session.UniqueID())
}
