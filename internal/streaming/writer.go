package streaming

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"imagestream/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a single write took longer than
	// WriteTimeout, typically because the client stopped reading.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrIdleTimeout indicates that nothing was written for IdleTimeout.
	ErrIdleTimeout = errors.New("stream idle timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the stream completed.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the writer was closed.
	ErrStreamCanceled = errors.New("stream canceled")
)

// TimeoutWriterConfig configures the timeout writer behavior
type TimeoutWriterConfig struct {
	// WriteTimeout bounds each write to the client (0 = no bound)
	WriteTimeout time.Duration
	// IdleTimeout is the maximum time between successful writes (0 = no bound)
	IdleTimeout time.Duration
	// ChunkSize splits large writes, flushing after each piece (0 = write as received)
	ChunkSize int
}

// DefaultTimeoutWriterConfig returns the defaults used when STREAM_WRITE_TIMEOUT
// and STREAM_IDLE_TIMEOUT are unset.
func DefaultTimeoutWriterConfig() TimeoutWriterConfig {
	return TimeoutWriterConfig{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

// TimeoutWriter writes a response body with per-write and idle timeouts.
// Write deadlines are set on the connection through http.ResponseController;
// writers that do not support deadlines get a watchdog goroutine instead.
type TimeoutWriter struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	ctx    context.Context
	cancel context.CancelCauseFunc
	config TimeoutWriterConfig
	idle   *time.Timer

	mu           sync.Mutex
	startTime    time.Time
	bytesWritten int64
	deadlines    bool
}

// NewTimeoutWriter creates a writer bound to ctx. Cancelling ctx fails
// subsequent writes with ErrClientGone.
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config TimeoutWriterConfig) *TimeoutWriter {
	writerCtx, cancel := context.WithCancelCause(ctx)

	tw := &TimeoutWriter{
		w:         w,
		rc:        http.NewResponseController(w),
		ctx:       writerCtx,
		cancel:    cancel,
		config:    config,
		startTime: time.Now(),
		deadlines: true,
	}

	if config.IdleTimeout > 0 {
		tw.idle = time.AfterFunc(config.IdleTimeout, func() {
			logging.Warn("Stream idle for %v, cancelling", config.IdleTimeout)
			cancel(ErrIdleTimeout)
		})
	}

	return tw
}

// Write writes p, in ChunkSize pieces when configured, flushing after each.
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	step := len(p)
	if tw.config.ChunkSize > 0 && step > tw.config.ChunkSize {
		step = tw.config.ChunkSize
	}

	written := 0
	for {
		if err := tw.err(); err != nil {
			return written, err
		}

		end := min(written+step, len(p))
		n, err := tw.writeOnce(p[written:end])
		written += n
		if err != nil {
			return written, err
		}
		tw.Flush()

		if written >= len(p) {
			return written, nil
		}
	}
}

func (tw *TimeoutWriter) writeOnce(p []byte) (int, error) {
	var n int
	var err error
	if tw.useDeadlines() {
		n, err = tw.writeWithDeadline(p)
	} else {
		n, err = tw.writeWithWatchdog(p)
	}
	if err != nil {
		return n, err
	}

	tw.mu.Lock()
	tw.bytesWritten += int64(n)
	tw.mu.Unlock()
	if tw.idle != nil {
		tw.idle.Reset(tw.config.IdleTimeout)
	}
	return n, nil
}

func (tw *TimeoutWriter) useDeadlines() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.deadlines && tw.config.WriteTimeout > 0
}

func (tw *TimeoutWriter) writeWithDeadline(p []byte) (int, error) {
	err := tw.rc.SetWriteDeadline(time.Now().Add(tw.config.WriteTimeout))
	if errors.Is(err, http.ErrNotSupported) {
		tw.mu.Lock()
		tw.deadlines = false
		tw.mu.Unlock()
		return tw.writeWithWatchdog(p)
	}
	if err != nil {
		return 0, err
	}

	n, err := tw.w.Write(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		tw.cancel(ErrWriteTimeout)
		return n, ErrWriteTimeout
	}
	return n, err
}

// writeWithWatchdog runs the write on its own goroutine so that a stuck
// client cannot block the caller past WriteTimeout.
func (tw *TimeoutWriter) writeWithWatchdog(p []byte) (int, error) {
	if tw.config.WriteTimeout <= 0 {
		return tw.w.Write(p)
	}

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := tw.w.Write(p)
		done <- result{n, err}
	}()

	timer := time.NewTimer(tw.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.n, r.err
	case <-timer.C:
		tw.cancel(ErrWriteTimeout)
		return 0, ErrWriteTimeout
	case <-tw.ctx.Done():
		return 0, tw.err()
	}
}

// Flush sends buffered data to the client if the response supports it.
func (tw *TimeoutWriter) Flush() {
	if err := tw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logging.Debug("stream flush failed: %v", err)
	}
}

// err maps the writer's cancellation cause to one of the sentinel errors.
func (tw *TimeoutWriter) err() error {
	if tw.ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(tw.ctx)
	switch {
	case errors.Is(cause, ErrStreamCanceled),
		errors.Is(cause, ErrWriteTimeout),
		errors.Is(cause, ErrIdleTimeout):
		return cause
	default:
		return ErrClientGone
	}
}

// Close stops the idle timer and fails any later write with ErrStreamCanceled.
// It is safe to call more than once.
func (tw *TimeoutWriter) Close() error {
	if tw.idle != nil {
		tw.idle.Stop()
	}
	tw.cancel(ErrStreamCanceled)
	if tw.useDeadlines() {
		// Clear the deadline so trailers and the final chunk are not cut off.
		if err := tw.rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}
	return nil
}

// Stats returns streaming statistics
func (tw *TimeoutWriter) Stats() (bytesWritten int64, duration time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.bytesWritten, time.Since(tw.startTime)
}
