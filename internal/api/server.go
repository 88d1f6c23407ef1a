// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/newthinker/frontier/internal/api/handler/api"
	"github.com/newthinker/frontier/internal/api/handler/web"
	"github.com/newthinker/frontier/internal/api/job"
	"github.com/newthinker/frontier/internal/api/middleware"
	"github.com/newthinker/frontier/internal/api/response"
	"github.com/newthinker/frontier/internal/app"
	"github.com/newthinker/frontier/internal/metrics"
)

// Server represents the HTTP server for frontier
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	runner     *api.Runner
	deps       Dependencies
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string // empty disables the metrics endpoint
	JobTTL      time.Duration
	MaxJobs     int
	JobTimeout  time.Duration
}

// Dependencies holds the services the handlers call into.
type Dependencies struct {
	Analyzer *app.Analyzer
	Metrics  *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry()
	}
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = 100
	}

	mux := http.NewServeMux()
	handler := metrics.LoggingMiddleware(logger)(metrics.HTTPMiddleware(deps.Metrics)(mux))

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		mux:    mux,
		runner: api.NewRunner(job.NewStore(cfg.MaxJobs, cfg.JobTTL), deps.Metrics, logger, cfg.JobTimeout),
		deps:   deps,
	}

	if err := s.setupRoutes(cfg); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config) error {
	a := s.deps.Analyzer

	defaults, err := app.DefaultRequest(a.Config())
	if err != nil {
		return fmt.Errorf("simulation defaults: %w", err)
	}
	smlDefaults, err := app.DefaultSMLRequest(a.Config())
	if err != nil {
		return fmt.Errorf("sml defaults: %w", err)
	}
	fetchDefaults, err := app.DefaultFetchRequest(a.Config())
	if err != nil {
		return fmt.Errorf("fetch defaults: %w", err)
	}
	indicatorDefaults, err := app.DefaultIndicatorRequest(a.Config())
	if err != nil {
		return fmt.Errorf("indicator defaults: %w", err)
	}

	var runArchive api.RunArchive
	var webArchive web.RunArchive
	if runs := a.Archive(); runs != nil {
		runArchive = runs
		webArchive = runs
	}

	frontierHandler := api.NewFrontierHandler(s.runner, a, defaults)
	smlHandler := api.NewSMLHandler(a, smlDefaults)
	fetchHandler := api.NewFetchHandler(s.runner, a, fetchDefaults)
	jobsHandler := api.NewJobsHandler(s.runner)
	runsHandler := api.NewRunsHandler(runArchive)
	tickersHandler := api.NewTickersHandler(a)
	fundamentalsHandler := api.NewFundamentalsHandler(a)
	indicatorsHandler := api.NewIndicatorsHandler(a, indicatorDefaults)
	webHandler, err := web.NewHandler(webArchive)
	if err != nil {
		return err
	}

	auth := middleware.APIKeyAuth(cfg.APIKey)
	v1 := func(pattern string, h http.HandlerFunc) {
		s.mux.Handle(pattern, auth(h))
	}

	v1("POST /api/v1/frontier", frontierHandler.Create)
	v1("GET /api/v1/frontier/{id}", frontierHandler.Get)
	v1("POST /api/v1/sml", smlHandler.Analyze)
	v1("POST /api/v1/indicators", indicatorsHandler.Analyze)
	v1("POST /api/v1/fetch", fetchHandler.Create)
	v1("GET /api/v1/jobs", jobsHandler.List)
	v1("GET /api/v1/jobs/{id}", jobsHandler.Get)
	v1("GET /api/v1/tickers", tickersHandler.List)
	v1("GET /api/v1/fundamentals", fundamentalsHandler.List)
	v1("GET /api/v1/runs", runsHandler.List)
	v1("GET /api/v1/runs/{year}/{month}/{id}/{file}", runsHandler.File)

	v1("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/runs", http.StatusFound)
	})
	v1("GET /runs", webHandler.Runs)
	v1("GET /runs/{year}/{month}/{id}", webHandler.Run)
	v1("GET /runs/{year}/{month}/{id}/{file}", webHandler.File)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(s.deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	return nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for running jobs.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.runner.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("jobs still running at shutdown")
	}
	return err
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  s.deps.Analyzer.GetStats(),
	})
}
