// Package metrics provides Prometheus instrumentation for imagestream.
//
// All metrics are registered with promauto and prefixed with "imagestream_".
// They are served on a separate port (METRICS_PORT) by the main binary.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: requests by method, normalized path and status
//   - HTTPRequestDuration: request duration by method and path
//   - HTTPRequestsInFlight: requests currently being processed
//
// ## Session Metrics
//
//   - StreamSessionsTotal: sessions by route and outcome ("delivered" or an error code)
//   - StreamSessionDuration: time from start to end-of-stream by route
//   - StreamChunksTotal, StreamBytesTotal: success payloads by route
//   - DispatcherQueueDepth: events waiting in delivery mailboxes
//
// ## Decode Metrics
//
//   - DecodeDuration, DecodeErrors: by backend (imaging, vips, ffmpeg, video)
//   - EncodeDuration: by output codec (png, jpeg)
//   - EngineTargetsInFlight: targets submitted and not yet cleared
//   - WorkerSlotsBusy: decode worker slots in use
//
// ## Source, Database and Filesystem Metrics
//
//   - SourceOpenTotal: byte source opens by scheme and status
//   - DBQueryTotal, DBQueryDuration: session history and API key queries
//   - Filesystem*: NFS retry behavior, recorded through NewFilesystemObserver
//
// ## History Metrics
//
// A Collector periodically reads aggregated session history from the
// database and publishes HistorySessions and HistoryBytes gauges.
//
// Call InitializeMetrics once at startup so every expected label
// combination is exported from the first scrape.
package metrics
