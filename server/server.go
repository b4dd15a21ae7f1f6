// Package server exposes the forecast pipeline as an HTML page walking through the upload,
// forecast, accuracy and download steps, along with a JSON API, a websocket progress stream for
// cross validation jobs and the operational endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/aouyang1/go-forecaster-studio/config"
	"github.com/aouyang1/go-forecaster-studio/jobs"
	"github.com/aouyang1/go-forecaster-studio/metrics"
	"github.com/gorilla/mux"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Server wires the run cache, the job manager and the metrics into a router
type Server struct {
	cfg     *config.Config
	cache   *runCache
	jobs    *jobs.Manager
	metrics *metrics.Manager
	tmpl    *template.Template
	router  *mux.Router
}

// New builds a server from cfg. A nil metrics manager gets a fresh one.
func New(cfg *config.Config, m *metrics.Manager) (*Server, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config, %w", err)
	}
	if m == nil {
		m = metrics.NewManager()
	}

	cache, err := newRunCache(cfg.CacheSize, cfg.PipelineOptions(), m)
	if err != nil {
		return nil, fmt.Errorf("unable to create run cache, %w", err)
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("unable to parse templates, %w", err)
	}

	s := &Server{
		cfg:   cfg,
		cache: cache,
		jobs: jobs.NewManager(jobs.Options{
			TTL:      cfg.JobTTL,
			Rate:     cfg.JobsPerSecond,
			Burst:    cfg.JobsBurst,
			Observer: m,
		}),
		metrics: m,
		tmpl:    tmpl,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.metricsMiddleware)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/metrics", s.handleMetricsForm).Methods(http.MethodPost)
	r.HandleFunc("/jobs/{id}", s.handleJobPage).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id}/cancel", s.handleJobCancel).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/forecast", s.handleAPIForecast).Methods(http.MethodPost)
	api.HandleFunc("/metrics", s.handleAPIMetrics).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{id}", s.handleAPIJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.handleAPICancelJob).Methods(http.MethodDelete)
	api.HandleFunc("/jobs/{id}/ws", s.handleAPIJobStream).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{id}/forecast.csv", s.handleAPIForecastCSV).Methods(http.MethodGet)
	api.HandleFunc("/charts/{id}", s.handleAPIChart).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	return r
}

// Handler returns the router serving every endpoint
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close cancels the running jobs
func (s *Server) Close() {
	s.jobs.Close()
}

// ListenAndServe serves on the configured address until ctx is done then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed, %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed, %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
