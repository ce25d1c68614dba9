package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"imagestream/internal/logging"
)

// Response headers and trailers of the HTTP event framing.
const (
	HeaderErrorCode    = "X-Stream-Error-Code"
	HeaderErrorMessage = "X-Stream-Error-Message"
	HeaderErrorDetail  = "X-Stream-Error-Detail"
)

// ErrorBody is the JSON body of an error that arrives before any payload.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

// HTTPSink frames one stream session as an HTTP response. Success chunks
// become the response body. An error before the first chunk becomes a JSON
// error response; an error after it is reported in trailers. Its methods
// must not be called concurrently.
type HTTPSink struct {
	ctx    context.Context
	w      http.ResponseWriter
	cfg    TimeoutWriterConfig
	tw     *TimeoutWriter // created with the first chunk so decode time is not idle time
	status func(code string) int
	abort  context.CancelFunc

	started  bool
	writeErr error
	done     chan struct{}
	once     sync.Once
}

// NewHTTPSink creates a sink writing to w. status maps an error code to the
// response status. abort is called when the client can no longer be
// written to, and may be nil.
func NewHTTPSink(ctx context.Context, w http.ResponseWriter, cfg TimeoutWriterConfig, status func(code string) int, abort context.CancelFunc) *HTTPSink {
	return &HTTPSink{
		ctx:    ctx,
		w:      w,
		cfg:    cfg,
		status: status,
		abort:  abort,
		done:   make(chan struct{}),
	}
}

// Success writes a chunk. The first chunk fixes the response headers.
func (s *HTTPSink) Success(chunk []byte) {
	if s.writeErr != nil {
		return
	}
	if !s.started {
		s.started = true
		h := s.w.Header()
		h.Set("Content-Type", http.DetectContentType(chunk))
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Cache-Control", "no-store")
		h.Set("Trailer", strings.Join([]string{HeaderErrorCode, HeaderErrorMessage, HeaderErrorDetail}, ", "))
		s.w.WriteHeader(http.StatusOK)
		s.tw = NewTimeoutWriter(s.ctx, s.w, s.cfg)
	}

	if _, err := s.tw.Write(chunk); err != nil {
		s.writeErr = err
		logging.Debug("stream write failed after %d bytes: %v", s.BytesWritten(), err)
		if s.abort != nil {
			s.abort()
		}
	}
}

// Error reports a failure.
func (s *HTTPSink) Error(code, message string, details any) {
	if s.started {
		h := s.w.Header()
		h.Set(HeaderErrorCode, code)
		h.Set(HeaderErrorMessage, message)
		if d, ok := details.(string); ok {
			h.Set(HeaderErrorDetail, d)
		}
		return
	}

	s.started = true
	s.w.Header().Set("Content-Type", "application/json")
	s.w.Header().Set(HeaderErrorCode, code)
	s.w.WriteHeader(s.status(code))
	if err := json.NewEncoder(s.w).Encode(ErrorBody{Code: code, Message: message, Details: details}); err != nil {
		logging.Debug("failed to write stream error body: %v", err)
	}
}

// EndOfStream finishes the response.
func (s *HTTPSink) EndOfStream() {
	s.once.Do(func() {
		if !s.started {
			// A session always sends a success or an error first, but keep
			// the response well-formed if it did not.
			s.w.WriteHeader(http.StatusNoContent)
		}
		if s.tw != nil {
			if err := s.tw.Close(); err != nil {
				logging.Warn("Failed to close timeout writer: %v", err)
			}
		}
		close(s.done)
	})
}

// Done is closed after EndOfStream.
func (s *HTTPSink) Done() <-chan struct{} {
	return s.done
}

// BytesWritten returns the payload bytes written so far.
func (s *HTTPSink) BytesWritten() int64 {
	if s.tw == nil {
		return 0
	}
	n, _ := s.tw.Stats()
	return n
}

// Err returns the write error that stopped the stream, if any.
func (s *HTTPSink) Err() error {
	return s.writeErr
}
