// Package metrics exposes synchronization statistics in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/civicwatch/incident-reports/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reports"

// Sync outcome label values.
const (
	OutcomeOK               = "ok"
	OutcomeCountUnavailable = "count_unavailable"
	OutcomeCanceled         = "canceled"
	OutcomeError            = "error"
)

// Metrics collects synchronization statistics. It implements report.Observer.
type Metrics struct {
	registry *prometheus.Registry

	syncs    *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	records  prometheus.Gauge
	requests *prometheus.CounterVec
}

// New returns Metrics registered in a private registry along with Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_total",
			Help:      "Number of synchronizations by policy and outcome.",
		}, []string{"policy", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_failures_total",
			Help:      "Number of report indices that could not be read, by failure kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of synchronizations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"policy"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Number of records returned by the last successful synchronization.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of Read API requests by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.syncs, m.failures, m.duration, m.records, m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveSync implements report.Observer.
func (m *Metrics) ObserveSync(p report.Policy, snap report.Snapshot, err error, elapsed time.Duration) {
	m.syncs.WithLabelValues(p.Name(), outcome(err)).Inc()
	m.duration.WithLabelValues(p.Name()).Observe(elapsed.Seconds())

	if err != nil {
		return
	}

	m.records.Set(float64(len(snap.Records)))

	for _, f := range snap.Skipped(p) {
		m.failures.WithLabelValues(f.Kind.String()).Inc()
	}
}

// ObserveRequest counts a served Read API request.
func (m *Metrics) ObserveRequest(route string, code string) {
	m.requests.WithLabelValues(route, code).Inc()
}

// Handler returns HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, report.ErrCountUnavailable):
		return OutcomeCountUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
