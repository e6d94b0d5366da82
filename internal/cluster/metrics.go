package cluster

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess  = "success"
	resultFailure  = "failure"
	resultRejected = "rejected"
	resultBusy     = "busy"
)

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dbcluster",
			Subsystem: "cluster",
			Name:      "operations_total",
			Help:      "Total number of lifecycle operations by result",
		},
		[]string{"cluster", "operation", "result"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dbcluster",
			Subsystem: "cluster",
			Name:      "operation_duration_seconds",
			Help:      "Duration of lifecycle operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4min
		},
		[]string{"cluster", "operation"},
	)

	activeWorkers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dbcluster",
			Subsystem: "cluster",
			Name:      "active_workers",
			Help:      "Active worker nodes last observed in the catalog",
		},
		[]string{"cluster"},
	)

	catalogUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dbcluster",
			Name:      "catalog_up",
			Help:      "Whether the last status read reached the catalog (1) or not (0)",
		},
	)
)

func init() {
	prometheus.MustRegister(
		operationsTotal,
		operationDuration,
		activeWorkers,
		catalogUp,
	)
}

func recordOperationMetric(cluster, operation, result string, duration time.Duration) {
	operationsTotal.WithLabelValues(cluster, operation, result).Inc()
	if duration > 0 {
		operationDuration.WithLabelValues(cluster, operation).Observe(duration.Seconds())
	}
}

func recordWorkersMetric(cluster string, count int) {
	activeWorkers.WithLabelValues(cluster).Set(float64(count))
}

func recordCatalogUpMetric(up bool) {
	if up {
		catalogUp.Set(1)
	} else {
		catalogUp.Set(0)
	}
}

// Helpers that check enableMetrics before recording.

func (s *Service) recordOperation(cluster, operation, result string, duration time.Duration) {
	if s.enableMetrics {
		recordOperationMetric(cluster, operation, result, duration)
	}
}

func (s *Service) recordWorkers(cluster string, count int) {
	if s.enableMetrics {
		recordWorkersMetric(cluster, count)
	}
}

func (s *Service) recordCatalogUp(up bool) {
	if s.enableMetrics {
		recordCatalogUpMetric(up)
	}
}
