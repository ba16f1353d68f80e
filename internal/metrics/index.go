package metrics

import "github.com/prometheus/client_golang/prometheus"

// Index writer Prometheus metrics.
var (
	IndexPendingWrites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "solrsync",
			Name:      "index_pending_writes",
			Help:      "Number of add/delete operations waiting for the next flush",
		},
	)

	IndexFlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrsync",
			Name:      "index_flushes_total",
			Help:      "Total index flushes",
		},
		[]string{"trigger", "status"}, // trigger: "manual" / "timer"; status: "success" / "error" / "empty"
	)

	IndexFlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "solrsync",
			Name:      "index_flush_duration_seconds",
			Help:      "Duration of update plus commit per flush",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	IndexBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "solrsync",
			Name:      "index_batch_size",
			Help:      "Operations sent per batched update request",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	IndexOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrsync",
			Name:      "index_operations_total",
			Help:      "Enqueued index operations",
		},
		[]string{"op", "result"}, // result: "queued" / "replaced"
	)
)

var indexMetricsRegistered bool

// RegisterIndexMetrics registers Prometheus index writer metrics. Must be called once from main.
func RegisterIndexMetrics() {
	if indexMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexPendingWrites)
	prometheus.MustRegister(IndexFlushesTotal)
	prometheus.MustRegister(IndexFlushDuration)
	prometheus.MustRegister(IndexBatchSize)
	prometheus.MustRegister(IndexOperationsTotal)
	indexMetricsRegistered = true
}
