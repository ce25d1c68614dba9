package metrics

import "imagestream/internal/mediatypes"

// ErrorOutcomes lists the non-delivered outcome labels of StreamSessionsTotal.
// It mirrors the error codes of the session package, which cannot be imported
// here without a cycle.
var ErrorOutcomes = []string{
	"streamImage-args",
	"streamImage-image-read-exception",
	"streamImage-image-decode-null",
	"streamImage-image-decode-exception",
	"streamImage-video-null",
	"streamImage-video-exception",
}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, r := range mediatypes.Routes {
		route := r.String()
		StreamSessionsTotal.WithLabelValues(route, "delivered")
		for _, code := range ErrorOutcomes {
			StreamSessionsTotal.WithLabelValues(route, code)
		}
		StreamSessionDuration.WithLabelValues(route)
		StreamChunksTotal.WithLabelValues(route)
		StreamBytesTotal.WithLabelValues(route)
	}
	// Argument errors happen before routing.
	StreamSessionsTotal.WithLabelValues("none", "streamImage-args")

	for _, backend := range []string{"imaging", "vips", "ffmpeg", "video"} {
		DecodeDuration.WithLabelValues(backend)
		DecodeErrors.WithLabelValues(backend)
	}

	for _, codec := range []string{"png", "jpeg"} {
		EncodeDuration.WithLabelValues(codec)
	}

	for _, scheme := range []string{"file", "s3", "gs"} {
		SourceOpenTotal.WithLabelValues(scheme, "success")
		SourceOpenTotal.WithLabelValues(scheme, "error")
	}

	for _, op := range []string{"initialize_schema", "record_session", "recent_sessions",
		"session_stats", "prune_sessions", "set_api_key", "validate_api_key", "clear_api_key"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, op := range []string{"stat", "open"} {
		for _, vol := range []string{"media", "unknown"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
