package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// OperationsTotal counts tool operations by outcome (success, fallback, failure).
	OperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingredient_analyzer",
		Name:      "operations_total",
		Help:      "Total number of tool operations, labeled by operation and outcome.",
	}, []string{"operation", "outcome"})

	// OperationDurationSeconds is the end-to-end time of one operation including the model call.
	OperationDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ingredient_analyzer",
		Name:      "operation_duration_seconds",
		Help:      "End-to-end time of a tool operation including the model call.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"operation"})

	// OperationErrorsTotal counts failed operations by error type, model-service failures included.
	OperationErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingredient_analyzer",
		Name:      "operation_errors_total",
		Help:      "Total number of failed operations, labeled by error type.",
	}, []string{"type"})

	FallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ingredient_analyzer",
		Name:      "fallbacks_total",
		Help:      "Total number of ingredient analyses answered with the substitute list.",
	})
)

// Register registers the collectors with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			OperationsTotal,
			OperationDurationSeconds,
			OperationErrorsTotal,
			FallbacksTotal,
		)
	})
}
