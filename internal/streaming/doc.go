/*
Package streaming frames stream sessions as HTTP responses.

# TimeoutWriter

TimeoutWriter wraps an http.ResponseWriter so that slow or vanished clients
cannot hold a session open forever:

  - Per-write timeouts: each write is bounded by WriteTimeout, using
    connection write deadlines (http.ResponseController) where available
  - Idle detection: the writer cancels itself when nothing was written for IdleTimeout
  - Chunked transfer: large writes are split into ChunkSize pieces and flushed
  - Client disconnect detection: the request context ends the stream early

# HTTPSink

HTTPSink receives the success, error and end-of-stream events of one
session and turns them into a response:

	200 OK, body = chunks        every chunk delivered
	4xx/5xx, JSON error body     error before the first chunk
	200 OK + X-Stream-Error-*    error after some chunks (HTTP trailers)

The content type of a successful response is sniffed from the first chunk.
The TimeoutWriter is only created with the first chunk, so time spent
decoding does not count as idle time.

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sink := streaming.NewHTTPSink(ctx, w, cfg, session.HTTPStatus, cancel)

# Error Handling

	if errors.Is(sink.Err(), streaming.ErrClientGone) {
		// Client disconnected, not a server error
	}
	if errors.Is(sink.Err(), streaming.ErrWriteTimeout) || errors.Is(sink.Err(), streaming.ErrIdleTimeout) {
		// Client too slow, stream terminated
	}
*/
package streaming
