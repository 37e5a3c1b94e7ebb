package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gosurface/pkg/metrics"
	"github.com/sandrolain/gosurface/pkg/types"
)

func TestObserve(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveCompile(metrics.OutcomeOK)
	m.ObserveCompile(metrics.OutcomeOK)
	m.ObserveCompile(metrics.OutcomeError)
	m.ObserveSample(types.Cartesian, 10*time.Millisecond, 3)
	m.ObserveSample(types.Cartesian, 10*time.Millisecond, 0)
	m.ObserveMesh(10201)
	m.ObserveSuperseded()
	m.ObserveHTTPError(422)

	body := scrape(t, m)
	assert.Contains(t, body, `gosurface_compile_total{outcome="ok"} 2`)
	assert.Contains(t, body, `gosurface_compile_total{outcome="error"} 1`)
	assert.Contains(t, body, `gosurface_soft_failures_total{system="cartesian"} 3`)
	assert.Contains(t, body, `gosurface_sample_duration_seconds_count{system="cartesian"} 2`)
	assert.Contains(t, body, "gosurface_mesh_vertices_count 1")
	assert.Contains(t, body, "gosurface_superseded_total 1")
	assert.Contains(t, body, `gosurface_http_request_errors_total{status="422"} 1`)
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.ObserveCompile(metrics.OutcomeOK)
		m.ObserveSample(types.Spherical, time.Second, 1)
		m.ObserveMesh(4)
		m.ObserveSuperseded()
		m.ObserveHTTPError(500)
	})
	assert.NotNil(t, m.Handler())
}

func TestHandler(t *testing.T) {
	m := metrics.New(nil)
	m.ObserveCompile(metrics.OutcomeCached)

	assert.Contains(t, scrape(t, m), `gosurface_compile_total{outcome="cached"} 1`)
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
