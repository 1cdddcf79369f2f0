package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/vovakirdan/livedeck/internal/deck"
)

// DefaultAddr is where the status server listens unless told otherwise.
const DefaultAddr = "127.0.0.1:7331"

var (
	// ErrRunning is returned when starting a server that is already up.
	ErrRunning = errors.New("telemetry: server already running")
)

// StatusFunc returns the current status of a deck. It is called from HTTP
// goroutines and must be safe for concurrent use; deck.Deck.Status is.
type StatusFunc func() deck.Status

// Server serves metrics and status of one deck:
//
//	GET /metrics  Prometheus exposition
//	GET /status   deck status as JSON
//	GET /healthz  200 while the game is healthy, 503 while broken
//	GET /events   websocket, one status message per cascade
type Server struct {
	addr      string
	collector *Collector
	status    StatusFunc
	log       *log.Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	hub      *Hub
}

// NewServer creates a stopped server. An empty addr means DefaultAddr.
func NewServer(addr string, collector *Collector, status StatusFunc, logger *log.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		addr:      addr,
		collector: collector,
		status:    status,
		log:       logger,
	}
}

// Router builds the HTTP routes. The websocket route broadcasts through hub.
func (s *Server) Router(hub *Hub) *mux.Router {
	r := mux.NewRouter()
	if s.collector != nil {
		r.Handle("/metrics", s.collector.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if hub != nil {
		r.HandleFunc("/events", func(w http.ResponseWriter, req *http.Request) {
			s.handleEvents(hub, w, req)
		}).Methods(http.MethodGet)
	}
	return r
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return ErrRunning
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("telemetry: cannot listen on %s: %w", s.addr, err)
	}

	hub := NewHub(s.log)
	srv := &http.Server{
		Handler:           s.Router(hub),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.srv, s.listener, s.hub = srv, ln, hub

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status server stopped", "error", err)
		}
	}()

	s.log.Info("status server listening", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the server down. Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, hub := s.srv, s.hub
	s.srv, s.listener, s.hub = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	hub.Close()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown failed: %w", err)
	}
	s.log.Info("status server stopped")
	return nil
}

// Sync starts or stops the server so that it runs exactly when enabled.
func (s *Server) Sync(enabled bool) error {
	switch {
	case enabled && !s.Running():
		return s.Start()
	case !enabled && s.Running():
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return s.Stop(ctx)
	}
	return nil
}

// Running reports whether the server is up.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv != nil
}

// Addr returns the bound address while running, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	hub := s.hub
	s.mu.Unlock()
	if hub == nil {
		return 0
	}
	return hub.Len()
}

// CascadeFinished implements deck.Observer by pushing the fresh status to
// websocket clients.
func (s *Server) CascadeFinished(string, deck.Cascade) {
	s.mu.Lock()
	hub := s.hub
	s.mu.Unlock()
	if hub == nil || s.status == nil {
		return
	}

	msg, err := json.Marshal(s.status())
	if err != nil {
		s.log.Warn("failed to encode status", "error", err)
		return
	}
	hub.Broadcast(msg)
}

var _ deck.Observer = (*Server)(nil)

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.status == nil {
		http.Error(w, "no deck", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.status == nil {
		http.Error(w, "no deck", http.StatusServiceUnavailable)
		return
	}
	st := s.status()
	if st.Diagnostic != "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":     st.State,
			"diagnostic": st.Diagnostic,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": st.State})
}

func (s *Server) handleEvents(hub *Hub, w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		http.Error(w, "no deck", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	first, err := json.Marshal(s.status())
	if err != nil {
		conn.Close()
		return
	}
	c := hub.join(conn, first)
	if c == nil {
		return
	}
	go hub.writeLoop(c)
	hub.readLoop(c)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
