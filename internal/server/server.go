// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the document generator over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/ieee-docgen/internal/generator"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// Ledger records and looks up downloads.
type Ledger interface {
	Record(ctx context.Context, d types.Download) (types.Download, error)
	Get(ctx context.Context, id string) (types.Download, error)
	Ping(ctx context.Context) error
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Available(ctx context.Context) bool
}

// Options configures a Server. Ledger and PDFService may be nil.
type Options struct {
	Config     types.ServerConfig
	Generator  *generator.Service
	Ledger     Ledger
	PDFService HealthChecker
	Logger     *zap.Logger
	Version    string
}

// Server is the HTTP API.
type Server struct {
	cfg     types.ServerConfig
	gen     *generator.Service
	ledger  Ledger
	pdfSvc  HealthChecker
	logger  *zap.Logger
	version string
}

// New returns a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Generator == nil {
		opts.Generator = generator.New(types.PDFConfig{}, generator.Deps{Logger: logger})
	}
	return &Server{
		cfg:     opts.Config,
		gen:     opts.Generator,
		ledger:  opts.Ledger,
		pdfSvc:  opts.PDFService,
		logger:  logger,
		version: opts.Version,
	}
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(echoRequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.checkRequestSize)
	if s.cfg.MaxBodyBytes > 0 {
		r.Use(middleware.RequestSize(s.cfg.MaxBodyBytes))
	}
	if s.cfg.RateLimit > 0 {
		r.Use(rateLimit(s.cfg.RateLimit, s.cfg.RateBurst))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/document-generator", s.handleDispatch)

		r.Route("/generate", func(r chi.Router) {
			r.Post("/docx", s.handleDOCX)
			r.Post("/pdf", s.handlePDF)
			r.Post("/html", s.handleHTML)
		})
		r.Post("/preview", s.handlePreview)
		r.Post("/convert/docx-to-pdf", s.handleConvert)

		r.Get("/validate-file", s.handleLimits)
		r.Post("/validate-file", s.handleValidateFile)

		r.Get("/health", s.handleHealth)
		r.Get("/downloads/{id}", s.handleDownload)
	})
	return r
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
