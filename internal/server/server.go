package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8000"

// Server is the user-facing HTTP API.
type Server struct {
	sc         *ServerContext
	health     *HealthChecker
	logger     *slog.Logger
	httpServer *http.Server
}

// New creates the API server around a server context.
func New(sc *ServerContext) *Server {
	s := &Server{
		sc:     sc,
		logger: sc.logger,
	}
	s.health = NewHealthChecker(sc)
	return s
}

// Health returns the health checker, so the serve command can flip
// readiness during startup and shutdown.
func (s *Server) Health() *HealthChecker {
	return s.health
}

// Handler builds the full request handler: routes wrapped in CORS and
// observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/auth/callback", s.handleCallback)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/me", s.handleMe)
	mux.HandleFunc("GET /api/emails", s.handleEmails)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	s.health.RegisterHealthEndpoints(mux)

	return withObservability(s.logger, s.sc.Metrics(), withCORS(s.sc.config.ClientURL, mux))
}

// Start runs the server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.sc.config.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("starting api server", "addr", addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting new requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.sc.Shutdown()
	if s.httpServer != nil {
		s.logger.Info("shutting down api server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
