// Package server exposes dataset upload, schema and the analyses over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tsanalysis "github.com/aouyang1/go-tsanalysis"
	"github.com/aouyang1/go-tsanalysis/dataset"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var (
	ErrNilStore          = errors.New("dataset store is required")
	ErrInvalidTimeout    = errors.New("request timeout must be positive")
	ErrInvalidUploadSize = errors.New("max upload size must be positive")
)

type Options struct {
	RequestTimeout time.Duration `json:"request_timeout"`
	MaxUploadBytes int64         `json:"max_upload_bytes"`
}

func NewDefaultOptions() *Options {
	return &Options{
		RequestTimeout: 60 * time.Second,
		MaxUploadBytes: 32 << 20,
	}
}

func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	if o.RequestTimeout <= 0 {
		return nil, fmt.Errorf("got %s, %w", o.RequestTimeout, ErrInvalidTimeout)
	}
	if o.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("got %d, %w", o.MaxUploadBytes, ErrInvalidUploadSize)
	}
	out := *o
	return &out, nil
}

// Server routes requests against the active dataset of a store.
type Server struct {
	router   *chi.Mux
	store    *dataset.Store
	analysis *tsanalysis.Options
	opt      *Options
	logger   *slog.Logger
}

// New builds the router. A nil logger uses slog.Default.
func New(store *dataset.Store, analysis *tsanalysis.Options, opt *Options, logger *slog.Logger) (*Server, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	analysis, err := analysis.Validate()
	if err != nil {
		return nil, err
	}
	opt, err = opt.Validate()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:   chi.NewRouter(),
		store:    store,
		analysis: analysis,
		opt:      opt,
		logger:   logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.timeout)
}

func (s *Server) setupRoutes() {
	s.router.Post("/upload", s.handleUpload)
	s.router.Get("/schema", s.handleSchema)
	s.router.Post("/reset", s.handleReset)
	s.router.Post("/timeseries", s.handleTimeSeries)
	s.router.Post("/causal", s.handleCausal)
	s.router.Get("/artifacts/{name}", s.handleArtifact)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opt.RequestTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shut down server, %w", err)
	}
	return nil
}

// timeout bounds the request context. Handlers report an expired deadline themselves.
func (s *Server) timeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.opt.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
