// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pawlogic"

// Detection outcomes.
const (
	OutcomeCompleted        = "completed"
	OutcomeInsufficientData = "insufficient_data"
	OutcomePetNotFound      = "pet_not_found"
	OutcomeFailed           = "failed"
)

// Metrics holds every collector of the service.
type Metrics struct {
	DetectionRuns      *prometheus.CounterVec
	DetectionDuration  prometheus.Histogram
	InsightsCreated    *prometheus.CounterVec
	DuplicatesSkipped  prometheus.Counter
	IncidentsAnalyzed  prometheus.Histogram
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestSeconds *prometheus.HistogramVec
}

// New registers the collectors with reg. Passing a fresh registry keeps
// tests independent of the global one.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DetectionRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "runs_total",
			Help:      "Pattern detection runs by outcome.",
		}, []string{"outcome"}),
		DetectionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "duration_seconds",
			Help:      "Wall time of one pattern detection run, including persistence.",
			Buckets:   prometheus.DefBuckets,
		}),
		InsightsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "insights_created_total",
			Help:      "Insights persisted by type.",
		}, []string{"type"}),
		DuplicatesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "duplicates_skipped_total",
			Help:      "Candidate insights dropped because their key already existed.",
		}),
		IncidentsAnalyzed: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "incidents_analyzed",
			Help:      "Number of incidents read by one detection run.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
