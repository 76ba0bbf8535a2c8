package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for invocations.
const (
	InvocationSuccess = "success"
	InvocationFailure = "failure"
	InvocationSkipped = "skipped"
)

// Outcome labels for result reads.
const (
	ReadOK       = "ok"
	ReadNotFound = "not_found"
	ReadError    = "error"
)

// Metrics bundles Prometheus collectors for the host.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry           *prometheus.Registry
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration prometheus.Histogram
	ResultReadsTotal   *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	invocations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapehost_invocations_total",
			Help: "Scraper invocations by outcome.",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrapehost_invocation_duration_seconds",
			Help:    "Wall time of scraper processes, settle wait excluded.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
	reads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapehost_result_reads_total",
			Help: "Result file reads by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(invocations, duration, reads)

	return &Metrics{
		Registry:           registry,
		InvocationsTotal:   invocations,
		InvocationDuration: duration,
		ResultReadsTotal:   reads,
	}
}

// ObserveInvocation records one finished scraper run.
func (m *Metrics) ObserveInvocation(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := InvocationSuccess
	if !ok {
		outcome = InvocationFailure
	}
	m.InvocationsTotal.WithLabelValues(outcome).Inc()
	m.InvocationDuration.Observe(d.Seconds())
}

// IncSkipped counts a submission that carried no URL.
func (m *Metrics) IncSkipped() {
	if m == nil {
		return
	}
	m.InvocationsTotal.WithLabelValues(InvocationSkipped).Inc()
}

// IncRead counts a result read for an outcome label.
func (m *Metrics) IncRead(outcome string) {
	if m == nil {
		return
	}
	m.ResultReadsTotal.WithLabelValues(outcome).Inc()
}
