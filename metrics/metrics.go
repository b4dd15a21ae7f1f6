// Package metrics provides Prometheus metrics for the forecaster studio.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ForecastOK     = "ok"
	ForecastFailed = "failed"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets the buckets of the duration histograms in seconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry registers the metrics on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// Manager owns the metrics of a single server.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	fitDuration  prometheus.Histogram
	forecastRuns *prometheus.CounterVec
	cvJobs       *prometheus.CounterVec
	cvJobsActive prometheus.Gauge

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewManager creates the metrics on a custom registry so only the studio metrics are exported.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "forecaster_studio",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"route", "method"},
	)
	m.fitDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "engine",
		Name:      "fit_duration_seconds",
		Help:      "Duration of a forecast run including the fit and prediction",
		Buckets:   m.histogramBuckets,
	})
	m.forecastRuns = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "engine",
			Name:      "forecast_runs_total",
			Help:      "Total number of forecast runs by outcome",
		},
		[]string{"outcome"},
	)
	m.cvJobs = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "jobs",
			Name:      "cross_validation_total",
			Help:      "Total number of finished cross validation jobs by status",
		},
		[]string{"status"},
	)
	m.cvJobsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "jobs",
		Name:      "cross_validation_active",
		Help:      "Number of cross validation jobs currently running",
	})
	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Forecast run cache hits",
	})
	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Forecast run cache misses",
	})
	return m
}

// Registry returns the registry holding the metrics.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Manager) RecordHTTPRequest(route, method, statusCode string, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// RecordForecastRun counts a run by outcome and observes its duration when it succeeded.
func (m *Manager) RecordForecastRun(outcome string, d time.Duration) {
	m.forecastRuns.WithLabelValues(outcome).Inc()
	if outcome == ForecastOK {
		m.fitDuration.Observe(d.Seconds())
	}
}

func (m *Manager) JobStarted() {
	m.cvJobsActive.Inc()
}

// JobFinished records the terminal status of a job that was previously started.
func (m *Manager) JobFinished(status string) {
	m.cvJobsActive.Dec()
	m.cvJobs.WithLabelValues(status).Inc()
}

func (m *Manager) RecordCacheHit() {
	m.cacheHits.Inc()
}

func (m *Manager) RecordCacheMiss() {
	m.cacheMisses.Inc()
}
