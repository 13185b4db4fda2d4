// Package httpapi implements the HTTP Control Plane: a REST surface
// over the Review State Engine, matching the corpus's thin-handler,
// JSON-DTO, shared-writeError style (grounded on internal/web/server.go
// and internal/web/api_v1_reviews.go in DESIGN.md).
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/roasbeef/planreview/internal/engine"
	"github.com/roasbeef/planreview/internal/gateway"
)

// Config controls how the Server binds and how long it tolerates
// inactivity before shutting itself down.
type Config struct {
	Addr        string
	IdleTimeout time.Duration
}

// DefaultConfig mirrors the corpus's DefaultConfig idiom.
func DefaultConfig() *Config {
	return &Config{
		Addr:        ":3030",
		IdleTimeout: 30 * time.Minute,
	}
}

// watchdogCadence is the idle watchdog's tick interval, per spec §5.
const watchdogCadence = time.Minute

// Server is the HTTP Control Plane.
type Server struct {
	eng     *engine.Engine
	gw      *gateway.Handler
	mux     *http.ServeMux
	srv     *http.Server
	log     *slog.Logger
	idle    time.Duration
	touchMu sync.Mutex
	lastHit time.Time
	idleCh  chan struct{}
}

// NewServer wires the Control Plane's routes over eng.
func NewServer(cfg *Config, eng *engine.Engine, logger *slog.Logger) *Server {
	s := &Server{
		eng:     eng,
		gw:      gateway.NewHandler(eng),
		mux:     http.NewServeMux(),
		log:     logger,
		idle:    cfg.IdleTimeout,
		lastHit: time.Now(),
		idleCh:  make(chan struct{}),
	}

	s.registerRoutes()

	return s
}

// touch resets the idle watchdog on every incoming request.
func (s *Server) touch() {
	s.touchMu.Lock()
	s.lastHit = time.Now()
	s.touchMu.Unlock()
}

// watchIdle exits the process's idle channel once IdleTimeout has
// elapsed since the last request, letting the daemon's main loop shut
// down. Zero IdleTimeout disables the watchdog.
func (s *Server) watchIdle(ctx context.Context) {
	if s.idle <= 0 {
		return
	}

	ticker := time.NewTicker(watchdogCadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.touchMu.Lock()
			elapsed := time.Since(s.lastHit)
			s.touchMu.Unlock()
			if elapsed >= s.idle {
				s.log.Info("idle watchdog fired", "idle", s.idle)
				close(s.idleCh)
				return
			}
		}
	}
}

// IdleExceeded is closed once the idle watchdog fires.
func (s *Server) IdleExceeded() <-chan struct{} {
	return s.idleCh
}

// Mux exposes the underlying router so callers can mount additional
// handlers (the Agent Tool Surface's stateless HTTP transport, per spec
// §6) onto the same listener as the Control Plane.
func (s *Server) Mux() *http.ServeMux {
	return s.mux
}

// Listen binds the configured address, falling back to an ephemeral
// port if it is already taken (spec §6's port-probe-then-fallback
// contract), then prints the process-contract ready line to stdout.
func (s *Server) Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		ln, err = net.Listen("tcp", ":0")
		if err != nil {
			return nil, fmt.Errorf("listen: %w", err)
		}
	}

	port := ln.Addr().(*net.TCPAddr).Port
	s.log.Info("listening", "port", port)

	ready, _ := json.Marshal(struct {
		Status string `json:"status"`
		Port   int    `json:"port"`
	}{Status: "ready", Port: port})
	fmt.Println(string(ready))

	return ln, nil
}

// Serve runs the HTTP server over an already-bound listener, blocking
// until ctx is cancelled or the server errors.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv = &http.Server{
		Handler:      s.withTouch(s.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections are long-lived.
		IdleTimeout:  60 * time.Second,
	}

	go s.watchIdle(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// withTouch wraps h so every request resets the idle watchdog.
func (s *Server) withTouch(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.touch()
		h.ServeHTTP(w, r)
	})
}
