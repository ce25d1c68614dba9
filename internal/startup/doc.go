// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - MEDIA_DIR: Root for file locators (default: /media)
//   - DATABASE_DIR: Session history and API key store (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - STREAM_WORKERS: Override the number of concurrent decodes
//   - STREAM_WRITE_TIMEOUT: Per-write timeout of HTTP streams (default: 30s)
//   - STREAM_IDLE_TIMEOUT: Idle timeout of HTTP streams (default: 60s)
//   - FFMPEG_PATH: FFmpeg binary (default: ffmpeg)
//   - VIPS_ENABLED: Use libvips for formats Go cannot decode (default: true)
//   - S3_REGION, S3_ACCESS_KEY, S3_SECRET_KEY, S3_ENDPOINT: s3:// locators, enabled when S3_REGION is set
//   - GCS_ENABLED, GCS_CREDENTIALS_FILE: gs:// locators
//   - HISTORY_RETENTION: How long finished sessions are kept (default: 168h)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see package memory
//
// The database directory is required and must be writable. A missing media
// directory is created; problems with it only affect file locators.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//
//	go build -ldflags "-X imagestream/internal/startup.Version=1.2.0 -X imagestream/internal/startup.Commit=$(git rev-parse --short HEAD)"
//
// # Lifecycle Logging
//
//   - [LogMemoryConfig]: Memory limit and decode budget
//   - [LogDatabaseInit]: Database initialization timing
//   - [LogDecoderInit]: libvips and FFmpeg availability
//   - [LogSourcesInit]: Registered locator schemes
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownStepComplete], [LogShutdownComplete]
package startup
