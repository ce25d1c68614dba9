package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"imagestream/internal/session"
	"imagestream/internal/streaming"
)

// StreamImage runs one stream session and writes it as a chunked response.
//
//	GET /api/stream?uri=...&mimeType=...&rotationDegrees=90&isFlipped=true
//
// The session is canceled when the client goes away.
func (h *Handlers) StreamImage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sink := streaming.NewHTTPSink(ctx, w, h.streamCfg, session.HTTPStatus, cancel)
	d := session.NewDispatcher(session.DefaultMailboxSize)

	s := h.controller.Start(ctx, queryArgs(r.URL.Query()), d, sink)
	<-s.Done()

	// Close drains the mailbox, so every event has reached w once it returns.
	d.Close()
}

// queryArgs converts query parameters into session arguments. Values that do
// not parse are passed on as strings so that argument validation rejects them.
func queryArgs(q url.Values) map[string]any {
	args := make(map[string]any, 4)
	for _, key := range []string{session.ArgURI, session.ArgMimeType} {
		if q.Has(key) {
			args[key] = q.Get(key)
		}
	}

	if q.Has(session.ArgRotationDegrees) {
		raw := q.Get(session.ArgRotationDegrees)
		if n, err := strconv.Atoi(raw); err == nil {
			args[session.ArgRotationDegrees] = n
		} else {
			args[session.ArgRotationDegrees] = raw
		}
	}

	if q.Has(session.ArgIsFlipped) {
		raw := q.Get(session.ArgIsFlipped)
		if b, err := strconv.ParseBool(raw); err == nil {
			args[session.ArgIsFlipped] = b
		} else {
			args[session.ArgIsFlipped] = raw
		}
	}

	return args
}
