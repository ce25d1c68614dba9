// Package handlers provides the HTTP handlers of the imagestream API.
//
// It includes handlers for:
//   - Streaming one image as a chunked HTTP response (GET /api/stream)
//   - Multiplexing many streams over a WebSocket (GET /api/ws)
//   - Session history and aggregated statistics (GET /api/sessions, GET /api/stats)
//   - Health, liveness and readiness probes, version and metrics
//
// An error that happens before the first chunk is answered with a JSON body
// and a status derived from the error code. Once chunks have been sent the
// status is fixed at 200 and the error travels in the X-Stream-Error-Code,
// X-Stream-Error-Message and X-Stream-Error-Detail trailers.
package handlers
