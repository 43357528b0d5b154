package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// sync runs, labelled by trigger (scheduled/manual) and outcome
	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_sync_runs_total",
			Help: "Total warehouse sync runs",
		},
		[]string{"trigger", "status"},
	)

	// metric rows upserted into the store by sync runs
	SyncRowsUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_sync_rows_total",
			Help: "Total metric rows upserted by sync runs",
		},
	)

	// records written by the legacy CSV importer
	ImportRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_import_records_total",
			Help: "Total records written by the legacy importer",
		},
	)

	// latency of warehouse extraction queries
	WarehouseQueryLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_warehouse_query_duration_seconds",
			Help:    "Duration of warehouse extraction queries",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		SyncRuns,
		SyncRowsUpserted,
		ImportRecords,
		WarehouseQueryLatency,
	)
}
