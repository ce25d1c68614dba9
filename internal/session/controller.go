package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"imagestream/internal/logging"
	"imagestream/internal/mediatypes"
	"imagestream/internal/metrics"
	"imagestream/internal/pipeline"
	"imagestream/internal/source"

	"github.com/google/uuid"
)

// ChunkStreamer streams a source's bytes unmodified.
type ChunkStreamer interface {
	Chunks(ctx context.Context, loc *source.Locator) iter.Seq2[[]byte, error]
}

// ImagePipeline transcodes a still image into one portable buffer.
type ImagePipeline interface {
	Transcode(ctx context.Context, req pipeline.ImageRequest) ([]byte, error)
}

// VideoPipeline renders a video thumbnail into one buffer.
type VideoPipeline interface {
	Thumbnail(ctx context.Context, loc *source.Locator) ([]byte, error)
}

// Recorder receives the outcome of every finished session.
type Recorder interface {
	RecordOutcome(o Outcome)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(o Outcome)

// RecordOutcome calls f.
func (f RecorderFunc) RecordOutcome(o Outcome) {
	f(o)
}

// Config wires a Controller.
type Config struct {
	Raw    ChunkStreamer
	Images ImagePipeline
	Videos VideoPipeline
	// Recorder is optional.
	Recorder Recorder
}

// Controller runs stream sessions.
type Controller struct {
	raw      ChunkStreamer
	images   ImagePipeline
	videos   VideoPipeline
	recorder Recorder

	wg sync.WaitGroup
}

// NewController creates a controller.
func NewController(cfg Config) *Controller {
	return &Controller{
		raw:      cfg.Raw,
		images:   cfg.Images,
		videos:   cfg.Videos,
		recorder: cfg.Recorder,
	}
}

// Session is a running stream request.
type Session struct {
	ID     string
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	outcome Outcome
}

// Cancel asks the session to stop. The session still ends with an
// end-of-stream event.
func (s *Session) Cancel() {
	s.cancel()
}

// Done is closed once the session has posted its end-of-stream event.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Outcome returns the session outcome. It is only complete after Done.
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Start runs a session for args on its own goroutine. Its events are
// delivered to sink through d.
func (c *Controller) Start(ctx context.Context, args map[string]any, d *Dispatcher, sink Sink) *Session {
	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	out := d.Bind(sink)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(s.done)
		defer cancel()

		o := c.Serve(sctx, s.ID, args, out)
		s.mu.Lock()
		s.outcome = o
		s.mu.Unlock()
	}()
	return s
}

// Wait blocks until every session started by c has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Serve runs one session synchronously and returns its outcome. It posts at
// most one error and always exactly one end-of-stream, and never panics.
func (c *Controller) Serve(ctx context.Context, id string, args map[string]any, sink Sink) (out Outcome) {
	out.SessionID = id
	out.StartedAt = time.Now()
	log := logging.With("session", id)

	metrics.StreamSessionsInFlight.Inc()
	ew := &eventWriter{sink: sink, out: &out}

	defer func() {
		if r := recover(); r != nil {
			log.Error("session panic: %v", r)
			if !ew.failed {
				ew.fail(panicCode(out), pipeline.FirstLine(fmt.Sprint(r)))
			}
		}

		sink.EndOfStream()

		out.Duration = time.Since(out.StartedAt)
		metrics.StreamSessionsInFlight.Dec()
		c.observe(out)
		log.Debug("session finished: route=%s outcome=%s chunks=%d bytes=%d in %v",
			out.RouteLabel(), out.OutcomeLabel(), out.Chunks, out.Bytes, out.Duration)
	}()

	req, err := ParseArgs(args)
	if err != nil {
		log.Debug("rejected arguments: %v", err)
		ew.emitError(CodeArgs, MessageArgs, nil)
		return out
	}
	out.URI = req.URI
	out.MimeType = req.MimeType

	out.Route = mediatypes.Classify(req.MimeType, req.RotationDegrees, req.IsFlipped)
	out.Routed = true
	log = log.With("uri", req.URI, "route", out.Route)
	log.Debug("routing %s", req.MimeType)

	switch out.Route {
	case mediatypes.RoutePassThrough:
		c.passThrough(ctx, req, ew)
	case mediatypes.RouteImageTranscode:
		b, err := c.images.Transcode(ctx, pipeline.ImageRequest{
			Locator:         req.Locator,
			MimeType:        req.MimeType,
			RotationDegrees: req.RotationDegrees,
			IsFlipped:       req.IsFlipped,
		})
		ew.result(b, err, pipeline.KindDecodeException, req.URI)
	case mediatypes.RouteVideoThumbnail:
		b, err := c.videos.Thumbnail(ctx, req.Locator)
		ew.result(b, err, pipeline.KindVideoException, req.URI)
	}
	return out
}

func (c *Controller) passThrough(ctx context.Context, req *Request, ew *eventWriter) {
	for chunk, err := range c.raw.Chunks(ctx, req.Locator) {
		if err != nil {
			ew.failure(err, pipeline.KindReadException, req.URI)
			return
		}
		ew.success(chunk)
	}
}

func (c *Controller) observe(o Outcome) {
	route := o.RouteLabel()
	metrics.StreamSessionsTotal.WithLabelValues(route, o.OutcomeLabel()).Inc()
	if o.Routed {
		metrics.StreamSessionDuration.WithLabelValues(route).Observe(o.Duration.Seconds())
		metrics.StreamChunksTotal.WithLabelValues(route).Add(float64(o.Chunks))
		metrics.StreamBytesTotal.WithLabelValues(route).Add(float64(o.Bytes))
	}
	if c.recorder != nil {
		c.recorder.RecordOutcome(o)
	}
}

// panicCode is the error code reported for a panic at the current stage.
func panicCode(o Outcome) string {
	if !o.Routed {
		return CodeArgs
	}
	switch o.Route {
	case mediatypes.RouteVideoThumbnail:
		return CodeFor(pipeline.KindVideoException)
	case mediatypes.RouteImageTranscode:
		return CodeFor(pipeline.KindDecodeException)
	default:
		return CodeFor(pipeline.KindReadException)
	}
}

// eventWriter posts events to a sink and keeps the outcome in step.
type eventWriter struct {
	sink   Sink
	out    *Outcome
	failed bool
}

func (w *eventWriter) success(b []byte) {
	w.out.Chunks++
	w.out.Bytes += int64(len(b))
	w.sink.Success(b)
}

func (w *eventWriter) emitError(code, message string, details any) {
	w.failed = true
	w.out.ErrorCode = code
	w.out.Message = message
	if s, ok := details.(string); ok {
		w.out.Detail = s
	}
	w.sink.Error(code, message, details)
}

func (w *eventWriter) fail(code, detail string) {
	msg := "failed to get image from uri=" + w.out.URI
	if !w.out.Routed {
		msg = MessageArgs
	}
	var details any
	if detail != "" {
		details = detail
	}
	w.emitError(code, msg, details)
}

// failure reports err, using fallback as the kind for errors that are not a
// *pipeline.Failure (such as context cancellation).
func (w *eventWriter) failure(err error, fallback pipeline.Kind, uri string) {
	var f *pipeline.Failure
	if !errors.As(err, &f) {
		f = &pipeline.Failure{Kind: fallback, URI: uri, Detail: pipeline.FirstLine(err.Error()), Err: err}
	}
	var details any
	if f.Detail != "" {
		details = f.Detail
	}
	w.emitError(CodeFor(f.Kind), f.Message(), details)
}

func (w *eventWriter) result(b []byte, err error, fallback pipeline.Kind, uri string) {
	if err != nil {
		w.failure(err, fallback, uri)
		return
	}
	w.success(b)
}
