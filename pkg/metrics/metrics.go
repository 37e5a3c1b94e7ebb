// Package metrics exposes Prometheus instrumentation for the surface pipeline.
//
// All methods are safe to call on a nil *Metrics, which records nothing. This
// keeps instrumentation optional for library users.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sandrolain/gosurface/pkg/types"
)

const namespace = "gosurface"

// Compile outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeCached = "cached"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	CompileTotal   *prometheus.CounterVec
	SampleDuration *prometheus.HistogramVec
	SoftFailures   *prometheus.CounterVec
	MeshVertices   prometheus.Histogram
	Superseded     prometheus.Counter
	HTTPErrors     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		CompileTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compile_total",
			Help:      "Expression compilations by outcome.",
		}, []string{"outcome"}),
		SampleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sample_duration_seconds",
			Help:      "Duration of a sampling pass by coordinate system.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"system"}),
		SoftFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "soft_failures_total",
			Help:      "Grid points whose value was replaced by zero.",
		}, []string{"system"}),
		MeshVertices: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mesh_vertices",
			Help:      "Vertex count of assembled meshes.",
			Buckets:   prometheus.ExponentialBuckets(4, 4, 10),
		}),
		Superseded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "superseded_total",
			Help:      "Recomputations dropped because a newer request was issued.",
		}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_request_errors_total",
			Help:      "HTTP requests answered with an error, by status code.",
		}, []string{"status"}),
		gatherer: reg,
	}
}

// ObserveCompile counts one compilation with the given outcome.
func (m *Metrics) ObserveCompile(outcome string) {
	if m == nil {
		return
	}
	m.CompileTotal.WithLabelValues(outcome).Inc()
}

// ObserveSample records one sampling pass.
func (m *Metrics) ObserveSample(system types.CoordinateSystem, elapsed time.Duration, softFailures int) {
	if m == nil {
		return
	}
	m.SampleDuration.WithLabelValues(system.String()).Observe(elapsed.Seconds())
	if softFailures > 0 {
		m.SoftFailures.WithLabelValues(system.String()).Add(float64(softFailures))
	}
}

// ObserveMesh records the size of an assembled mesh.
func (m *Metrics) ObserveMesh(vertices int) {
	if m == nil {
		return
	}
	m.MeshVertices.Observe(float64(vertices))
}

// ObserveSuperseded counts one dropped recomputation.
func (m *Metrics) ObserveSuperseded() {
	if m == nil {
		return
	}
	m.Superseded.Inc()
}

// ObserveHTTPError counts one failed HTTP request.
func (m *Metrics) ObserveHTTPError(status int) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Gatherer returns the registry the collectors were registered on.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.gatherer
}

// Handler returns an HTTP handler serving the collected metrics in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{})
}
