package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagestream_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagestream_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagestream_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Stream session metrics
var (
	StreamSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagestream_sessions_total",
			Help: "Total number of stream sessions by route and outcome",
		},
		[]string{"route", "outcome"}, // outcome: "delivered" or an error code
	)

	StreamSessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagestream_session_duration_seconds",
			Help:    "Stream session duration from start to end-of-stream",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"route"},
	)

	StreamSessionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagestream_sessions_in_flight",
			Help: "Number of stream sessions currently running",
		},
	)

	StreamChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagestream_chunks_emitted_total",
			Help: "Total number of success chunks emitted",
		},
		[]string{"route"},
	)

	StreamBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagestream_bytes_emitted_total",
			Help: "Total number of payload bytes emitted",
		},
		[]string{"route"},
	)

	DispatcherQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagestream_dispatcher_queue_depth",
			Help: "Events waiting in delivery mailboxes",
		},
	)
)

// Decode engine metrics
var (
	DecodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagestream_decode_duration_seconds",
			Help:    "Bitmap decode duration by backend",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"backend"}, // "imaging", "vips", "ffmpeg", "video"
	)

	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagestream_decode_errors_total",
			Help: "Total number of failed decode attempts by backend",
		},
		[]string{"backend"},
	)

	EncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagestream_encode_duration_seconds",
			Help:    "Encode duration by output codec",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"codec"},
	)

	EngineTargetsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagestream_engine_targets_in_flight",
			Help: "Decode targets submitted and not yet cleared",
		},
	)

	WorkerSlotsBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagestream_worker_slots_busy",
			Help: "Decode worker slots currently held",
		},
	)
)

// Source metrics
var (
	SourceOpenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagestream_source_open_total",
			Help: "Total number of byte source opens by scheme and status",
		},
		[]string{"scheme", "status"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagestream_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagestream_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagestream_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagestream_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retry attempts after stale file handles",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagestream_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagestream_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagestream_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors seen",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagestream_filesystem_retry_duration_seconds",
			Help:    "Duration of filesystem operations including retries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagestream_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagestream_memory_paused",
			Help: "1 when new decodes are held back because memory is critical",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagestream_memory_gc_pauses_total",
			Help: "Total number of times decoding was paused for memory pressure",
		},
	)
)
