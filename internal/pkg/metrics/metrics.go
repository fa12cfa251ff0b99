// Package metrics provides Prometheus metrics for the faultmap backend
// (RED + analysis + cache). Scrapeable at /metrics; dashboards and runbooks
// rely on these names.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "faultmap"

var (
	// HTTPRequestTotal counts requests by method, path, status (RED: rate).
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDurationSeconds is request latency histogram (RED: duration).
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10), // 1ms to ~9.3s
		},
		[]string{"method", "path"},
	)

	// AnalysisDurationSeconds is per-operation analysis latency (SLO target).
	AnalysisDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Analysis operation duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation"},
	)

	// AnalysisCacheHitsTotal counts analysis cache hits.
	AnalysisCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_cache_hits_total",
			Help:      "Total number of analysis result cache hits.",
		},
	)

	// AnalysisCacheMissesTotal counts analysis cache misses.
	AnalysisCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_cache_misses_total",
			Help:      "Total number of analysis result cache misses.",
		},
	)

	// TraversalTruncatedTotal counts traversals cut short by the visit cap.
	// A rising rate means the graph grew past the configured limits.
	TraversalTruncatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traversal_truncated_total",
			Help:      "Total number of graph traversals truncated at the node-visit cap.",
		},
	)

	// GatewayRetriesTotal counts graph gateway retry attempts by operation.
	GatewayRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_gateway_retries_total",
			Help:      "Total number of graph gateway retry attempts.",
		},
		[]string{"operation"},
	)

	// TopologyInvalidationsTotal counts cache invalidations triggered by
	// discovery topology-change events.
	TopologyInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topology_invalidations_total",
			Help:      "Total number of cache invalidations from topology-change events.",
		},
	)
)
