// Package metrics registers the Prometheus instruments txindexd's
// subsystems increment. Mounting an HTTP handler to export them is the
// perimeter's job (out of scope for this core); this package only owns
// the instrument definitions and registration.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the process-wide collector registry. A dedicated registry
// (rather than the global default) keeps this core's metrics separable
// from whatever the embedding process also registers.
var Registry = prometheus.NewRegistry()

var (
	// IngestBatchesTotal counts committed ingestion batches.
	IngestBatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txindexd_ingest_batches_total",
		Help: "Total number of ingestion batches flushed to the transaction store.",
	})

	// IngestRecordsInsertedTotal counts records newly inserted by
	// ingestion batches.
	IngestRecordsInsertedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txindexd_ingest_records_inserted_total",
		Help: "Total number of transaction records newly inserted.",
	})

	// IngestRecordsSkippedTotal counts records skipped as duplicates.
	IngestRecordsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txindexd_ingest_records_skipped_total",
		Help: "Total number of transaction records skipped as duplicates.",
	})

	// IngestDLQTotal counts records and raw messages routed to the DLQ.
	IngestDLQTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txindexd_ingest_dlq_total",
		Help: "Total number of messages or records routed to the dead-letter topic.",
	})

	// WSActiveSessions tracks the number of open live-channel sessions.
	WSActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "txindexd_ws_active_sessions",
		Help: "Number of currently open live subscription channel sessions.",
	})

	// WSEventsDeliveredTotal counts events delivered to subscribers.
	WSEventsDeliveredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txindexd_ws_events_delivered_total",
		Help: "Total number of fan-out events delivered to subscriptions.",
	})

	// WSEventsDroppedTotal counts events dropped due to the outbound
	// rate limit.
	WSEventsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txindexd_ws_events_dropped_total",
		Help: "Total number of fan-out events dropped by the per-session outbound rate limit.",
	})

	// CacheHitsTotal / CacheMissesTotal track the query endpoint's
	// response cache.
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txindexd_cache_hits_total",
		Help: "Total number of response-cache hits.",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txindexd_cache_misses_total",
		Help: "Total number of response-cache misses.",
	})
)

func init() {
	Registry.MustRegister(
		IngestBatchesTotal,
		IngestRecordsInsertedTotal,
		IngestRecordsSkippedTotal,
		IngestDLQTotal,
		WSActiveSessions,
		WSEventsDeliveredTotal,
		WSEventsDroppedTotal,
		CacheHitsTotal,
		CacheMissesTotal,
	)
}
