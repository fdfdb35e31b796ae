// Package server exposes a types.RecordStore over HTTP at /api/appraisals.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

// APIKeyHeader carries the shared credential on every /api request.
const APIKeyHeader = "X-API-KEY"

// Options configures a Server.
type Options struct {
	// APIKey is the shared credential. An empty key rejects every request.
	APIKey string
	Logger *slog.Logger
	// Registry receives the HTTP metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry
}

// Server routes HTTP requests to a record store.
type Server struct {
	store   types.RecordStore
	apiKey  string
	logger  *slog.Logger
	metrics *metrics
	router  chi.Router
}

// New builds the router for store.
func New(store types.RecordStore, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		store:   store,
		apiKey:  opts.APIKey,
		logger:  logger,
		metrics: newMetrics(reg),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/appraisals", func(api chi.Router) {
		api.Use(s.requireAPIKey)
		api.Post("/", s.handleCreate)
		api.Get("/", s.handleList)
		api.Get("/{id}", s.handleGet)
		api.Put("/{id}", s.handleUpdate)
		api.Delete("/{id}", s.handleDelete)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("record store listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("record store stopped")
	return nil
}
