// Package metrics holds the Prometheus collectors smartlist exports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Evaluations        *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	MatchedEntries     *prometheus.GaugeVec
	ScannedFiles       prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartlist_evaluations_total",
			Help: "Smart playlist evaluations by playlist name.",
		}, []string{"playlist"}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartlist_evaluation_duration_seconds",
			Help:    "Time spent evaluating a smart playlist over the catalog.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		MatchedEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartlist_matched_entries",
			Help: "Entries matched by the last evaluation of a playlist.",
		}, []string{"playlist"}),
		ScannedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartlist_scanned_files_total",
			Help: "Files indexed by library scans.",
		}),
	}
	reg.MustRegister(
		m.Evaluations,
		m.EvaluationDuration,
		m.MatchedEntries,
		m.ScannedFiles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveEvaluation records one evaluation of playlist.
func (m *Metrics) ObserveEvaluation(playlist string, matched int, elapsed time.Duration) {
	m.Evaluations.WithLabelValues(playlist).Inc()
	m.EvaluationDuration.Observe(elapsed.Seconds())
	m.MatchedEntries.WithLabelValues(playlist).Set(float64(matched))
}

// Registry exposes the private registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
