// Package metrics registers the Prometheus collectors of the extraction
// service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the extraction pipeline, the worker
// queue and the HTTP transport. A nil *Metrics records nothing.
type Metrics struct {
	RunsTotal         *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	FieldOutcomes     *prometheus.CounterVec
	CapabilityCalls   *prometheus.CounterVec
	MissingHeaders    *prometheus.CounterVec
	QueueDepth        prometheus.Gauge
	QueueJobsTotal    *prometheus.CounterVec
	HTTPRequestsTotal *prometheus.CounterVec
}

// New creates and registers the metrics once per process; later calls
// return the same collectors.
//
// All metrics are prefixed with "benefits_".
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "benefits_extraction_runs_total",
					Help: "Extraction runs by profile and outcome",
				},
				[]string{"profile", "status"}, // "completed" or "failed"
			),
			RunDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "benefits_extraction_run_duration_seconds",
					Help:    "Wall time of one extraction run",
					Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
				},
				[]string{"profile"},
			),
			FieldOutcomes: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "benefits_field_outcomes_total",
					Help: "Field results by status and absence reason",
				},
				[]string{"profile", "status", "reason"},
			),
			CapabilityCalls: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "benefits_capability_calls_total",
					Help: "Extraction capability attempts, retries included",
				},
				[]string{"profile"},
			),
			MissingHeaders: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "benefits_missing_headers_total",
					Help: "Categories whose header was not found in a document",
				},
				[]string{"profile", "category"},
			),
			QueueDepth: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "benefits_queue_depth",
					Help: "Jobs waiting in the background queue",
				},
			),
			QueueJobsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "benefits_queue_jobs_total",
					Help: "Background jobs by outcome",
				},
				[]string{"status"}, // queued, completed, failed, rejected
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "benefits_http_requests_total",
					Help: "HTTP requests by route pattern and status code",
				},
				[]string{"method", "route", "code"},
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) ObserveRun(profile, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(profile, status).Inc()
	m.RunDuration.WithLabelValues(profile).Observe(d.Seconds())
}

func (m *Metrics) ObserveField(profile, status, reason string) {
	if m == nil {
		return
	}
	m.FieldOutcomes.WithLabelValues(profile, status, reason).Inc()
}

func (m *Metrics) AddCapabilityCalls(profile string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CapabilityCalls.WithLabelValues(profile).Add(float64(n))
}

func (m *Metrics) ObserveMissingHeader(profile, category string) {
	if m == nil {
		return
	}
	m.MissingHeaders.WithLabelValues(profile, category).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

func (m *Metrics) ObserveJob(status string) {
	if m == nil {
		return
	}
	m.QueueJobsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
}
