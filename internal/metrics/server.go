package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ServerConfig configures the metrics listener.
type ServerConfig struct {
	Listen   string
	Username string
	Password string // bcrypt hash; empty disables auth
}

// Server serves /metrics over HTTP.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
	errCh  chan error
}

// NewServer creates a metrics server for c. Nothing listens until Start.
func NewServer(cfg ServerConfig, c *Collector, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", basicAuth(cfg.Username, cfg.Password, c.Handler()))

	return &Server{
		srv: &http.Server{
			Addr:              cfg.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With("component", "metrics"),
		errCh:  make(chan error, 1),
	}
}

// Start binds the listener and serves in the background. Bind errors are
// returned directly; later serve errors arrive on Err.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("cannot listen on %s: %w", s.srv.Addr, err)
	}
	s.ln = ln
	s.logger.Info("serving metrics", "addr", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Err delivers a fatal serve error.
func (s *Server) Err() <-chan error { return s.errCh }

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func basicAuth(user, hash string, next http.Handler) http.Handler {
	if user == "" && hash == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || !checkPassword(p, hash) {
			w.Header().Set("WWW-Authenticate", `Basic realm="perch"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func checkPassword(plain, hash string) bool {
	if !strings.HasPrefix(hash, "$2") {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
