// Package main provides the entry point for the imagestream service.
//
// imagestream turns a media locator into a stream of displayable image bytes.
// Each request is classified by MIME type and orientation and then served by
// one of three routes:
//
//   - Pass-through: native formats (JPEG, PNG) are streamed in chunks as stored
//   - Image transcode: other images are decoded, oriented and re-encoded as PNG
//   - Video thumbnail: a frame is extracted from a video and encoded as JPEG
//
// Every stream produces zero or more success chunks, at most one error and
// exactly one end-of-stream marker, delivered in order.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from environment or cgroup limits
//  2. Configuration Loading: Reads environment variables and validates directories
//  3. Database Initialization: Opens the SQLite session history and API key store
//  4. Component Initialization:
//     - Memory Monitor: Pauses new decodes under memory pressure
//     - Decode Pool: Bounds concurrent bitmap decodes
//     - Decoders: libvips (if enabled), pure Go codecs and FFmpeg
//     - Sources: local files, S3 and GCS (if enabled)
//     - Metrics Collector: Refreshes history gauges every minute
//  5. HTTP Server Setup: Configures routes, middleware, and starts server
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM, stops all components cleanly
//
// # HTTP Server
//
// The main server (default port 8080) exposes:
//
//   - GET /api/stream?uri=...&mimeType=...: one stream as a chunked HTTP response
//   - GET /api/ws: many concurrent streams over one WebSocket connection
//   - GET /api/sessions, /api/stats: recorded session history
//   - /health, /healthz, /livez, /readyz, /version: probes
//
// When an API key is configured (see cmd/apikey), every non-probe route
// requires it as a bearer token, an X-API-Key header or a key query parameter.
//
// The metrics server (default port 9090, optional) serves /metrics and /health.
//
// # Graceful Shutdown
//
//  1. Stop accepting new HTTP requests
//  2. Wait for running stream sessions (30s timeout)
//  3. Stop the pruner, metrics collector and memory monitor
//  4. Shutdown metrics server (if running)
//  5. Remove transcoder temp files and shut down libvips
//  6. Close the GCS client and the database
//
// # Build Requirements
//
// CGO is required for SQLite and libvips. FFmpeg must be on PATH (or set via
// FFMPEG_PATH) for video thumbnails and for image formats the Go decoders
// cannot read.
//
//	go build -o imagestream .
//
// # Related Packages
//
//   - [imagestream/internal/session]: Stream controller and event protocol
//   - [imagestream/internal/streaming]: Event dispatcher and HTTP sink
//   - [imagestream/internal/pipeline]: Pass-through, transcode and thumbnail routes
//   - [imagestream/internal/decoder]: Bitmap decode engine
//   - [imagestream/internal/source]: Byte sources by locator scheme
//   - [imagestream/internal/handlers]: HTTP and WebSocket handlers
//   - [imagestream/internal/middleware]: HTTP middleware (auth, logging, metrics)
//   - [imagestream/internal/database]: SQLite session history
//   - [imagestream/internal/startup]: Configuration and initialization
package main
