package report

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for report builds.
type Metrics struct {
	// BuildsTotal counts builds by outcome (generated, no_data, index_error, canceled).
	BuildsTotal *prometheus.CounterVec

	// BuildDuration observes end-to-end build latency.
	BuildDuration prometheus.Histogram

	// SourceFailuresTotal counts connector failures by source.
	SourceFailuresTotal *prometheus.CounterVec

	// PassagesTotal counts passages produced per build, by source kind.
	PassagesTotal *prometheus.CounterVec

	// RetrievalFallbacksTotal counts builds that generated from in-memory
	// passages because the index read came back empty or failed.
	RetrievalFallbacksTotal prometheus.Counter

	// QuestionsTotal counts follow-up questions answered.
	QuestionsTotal prometheus.Counter
}

// NewMetrics registers the report metrics once per process.
//
//   - pharmadd_report_builds_total{outcome}
//   - pharmadd_report_build_duration_seconds
//   - pharmadd_report_source_failures_total{source}
//   - pharmadd_report_passages_total{source}
//   - pharmadd_report_retrieval_fallbacks_total
//   - pharmadd_report_questions_total
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			BuildsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pharmadd",
					Subsystem: "report",
					Name:      "builds_total",
					Help:      "Total number of report builds by outcome",
				},
				[]string{"outcome"},
			),
			BuildDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "pharmadd",
					Subsystem: "report",
					Name:      "build_duration_seconds",
					Help:      "Report build duration in seconds",
					Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
				},
			),
			SourceFailuresTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pharmadd",
					Subsystem: "report",
					Name:      "source_failures_total",
					Help:      "Total number of failed upstream lookups by source",
				},
				[]string{"source"},
			),
			PassagesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pharmadd",
					Subsystem: "report",
					Name:      "passages_total",
					Help:      "Total number of passages produced by source kind",
				},
				[]string{"source"},
			),
			RetrievalFallbacksTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "pharmadd",
					Subsystem: "report",
					Name:      "retrieval_fallbacks_total",
					Help:      "Builds that used in-memory passages instead of the index read",
				},
			),
			QuestionsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "pharmadd",
					Subsystem: "report",
					Name:      "questions_total",
					Help:      "Total number of follow-up questions answered",
				},
			),
		}
	})
	return globalMetrics
}
