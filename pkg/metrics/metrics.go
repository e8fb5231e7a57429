package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Global metrics, registered on the default registry through promauto.

var (
	// HttpRequestsTotal counts HTTP requests by method, path and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektorsnb_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HttpRequestDuration measures server response time.
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kektorsnb_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"method", "path"},
	)

	// OperationsTotal counts executed workload operations by kind and outcome
	// ("ok", "not_found", "invalid", "coercion", "error").
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektorsnb_operations_total",
			Help: "Total number of workload operations executed",
		},
		[]string{"kind", "outcome"},
	)

	// OperationDuration measures operation latency by kind.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kektorsnb_operation_duration_seconds",
			Help:    "Duration of workload operations in seconds",
			Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"kind"},
	)

	// TxCommitted counts committed write scopes.
	TxCommitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kektorsnb_tx_committed_total",
			Help: "Total number of committed write transactions",
		},
	)

	// TxRolledBack counts write scopes discarded because of an error or panic.
	TxRolledBack = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kektorsnb_tx_rolled_back_total",
			Help: "Total number of rolled back write transactions",
		},
	)

	// GraphVertices tracks vertex counts by label.
	GraphVertices = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kektorsnb_graph_vertices",
			Help: "Number of vertices by label",
		},
		[]string{"label"},
	)

	// GraphEdges tracks edge counts by label.
	GraphEdges = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kektorsnb_graph_edges",
			Help: "Number of edges by label",
		},
		[]string{"label"},
	)

	// SnapshotDuration measures how long a full snapshot takes.
	SnapshotDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kektorsnb_snapshot_duration_seconds",
			Help:    "Duration of snapshot saves in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)

	// LogSyncDuration measures fsync latency of the transaction log.
	LogSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kektorsnb_log_sync_duration_seconds",
			Help:    "Duration of transaction log fsyncs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
)
