package metrics

import "github.com/prometheus/client_golang/prometheus"

// Solr transport Prometheus metrics.
var (
	SolrRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrsync",
			Name:      "solr_requests_total",
			Help:      "Total number of requests sent to Solr",
		},
		[]string{"op", "status"},
	)

	SolrRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "solrsync",
			Name:      "solr_request_duration_seconds",
			Help:      "Solr request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	SolrErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solrsync",
			Name:      "solr_errors_total",
			Help:      "Total Solr request errors",
		},
		[]string{"op", "error_type"}, // "network" / "http" / "rate_limit"
	)
)

var solrMetricsRegistered bool

// RegisterSolrMetrics registers Prometheus Solr transport metrics. Must be called once from main.
func RegisterSolrMetrics() {
	if solrMetricsRegistered {
		return
	}
	prometheus.MustRegister(SolrRequestsTotal)
	prometheus.MustRegister(SolrRequestDuration)
	prometheus.MustRegister(SolrErrorsTotal)
	solrMetricsRegistered = true
}
