package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRecording(t *testing.T) {
	m := NewManager()

	m.RecordHTTPRequest("/api/forecast", http.MethodPost, "200", 20*time.Millisecond)
	m.RecordHTTPRequest("/api/forecast", http.MethodPost, "200", 30*time.Millisecond)
	m.RecordHTTPRequest("/api/forecast", http.MethodPost, "422", time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/forecast", http.MethodPost, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/forecast", http.MethodPost, "422")))

	m.RecordForecastRun(ForecastOK, time.Second)
	m.RecordForecastRun(ForecastFailed, time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.forecastRuns.WithLabelValues(ForecastOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.forecastRuns.WithLabelValues(ForecastFailed)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.fitDuration))

	m.JobStarted()
	m.JobStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cvJobsActive))
	m.JobFinished("succeeded")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cvJobsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cvJobs.WithLabelValues("succeeded")))

	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheMisses))
}

func TestManagerOptions(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewManager(
		WithNamespace("test"),
		WithRegistry(registry),
		WithHistogramBuckets([]float64{0.1, 1}),
	)
	assert.Same(t, registry, m.Registry())

	m.RecordCacheHit()
	families, err := registry.Gather()
	require.Nil(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_cache_hits_total")
}

func TestManagerHandler(t *testing.T) {
	m := NewManager()
	m.RecordForecastRun(ForecastOK, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.Nil(t, err)
	assert.True(t, strings.Contains(string(body), `forecaster_studio_engine_forecast_runs_total{outcome="ok"} 1`))
}
