package vectorstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts store operations.
	// Labels: provider (chromem, qdrant, pgvector), operation, result (success, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pharmadd",
			Subsystem: "vectorstore",
			Name:      "operations_total",
			Help:      "Total number of vector store operations",
		},
		[]string{"provider", "operation", "result"},
	)

	// OperationDuration tracks how long store operations take.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pharmadd",
			Subsystem: "vectorstore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of vector store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	// RecordsUpserted counts records written.
	RecordsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pharmadd",
			Subsystem: "vectorstore",
			Name:      "records_upserted_total",
			Help:      "Total number of records upserted",
		},
		[]string{"provider"},
	)
)

// track starts timing an operation. Defer the returned func with the
// address of the named error result.
func track(provider, operation string) func(*error) {
	start := time.Now()
	return func(errp *error) {
		result := "success"
		if errp != nil && *errp != nil {
			result = "error"
		}
		OperationsTotal.WithLabelValues(provider, operation, result).Inc()
		OperationDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
	}
}
