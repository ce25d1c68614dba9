// Package middleware provides HTTP middleware for the imagestream server.
//
// It includes:
//   - Request logging in W3C Extended Log Format, tagged with the stream error code
//   - Prometheus request metrics keyed by mux route template
//   - API key authentication (Bearer token, X-API-Key header or key query parameter)
//   - gzip compression of JSON responses; streams are never compressed
package middleware
