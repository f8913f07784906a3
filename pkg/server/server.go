package server

import (
	"context"
	"net/http"

	"github.com/benashkar/turkish-bsl/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes health checks, metrics, and any additional handlers the
// owning binary mounts (the dashboard mounts its snapshot API here).
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *logger.Logger
	readyCheck func() error
}

// Option customizes a Server before it starts
type Option func(*Server)

// WithHandler mounts an additional handler on the server mux
func WithHandler(pattern string, h http.Handler) Option {
	return func(s *Server) {
		s.mux.Handle(pattern, h)
	}
}

// WithReadyCheck sets the probe consulted by /ready
func WithReadyCheck(check func() error) Option {
	return func(s *Server) {
		s.readyCheck = check
	}
}

// New creates a new Server instance
func New(addr string, l *logger.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:    mux,
		logger: l,
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.readyCheck != nil {
		if err := s.readyCheck(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// Start runs the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
