package decoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"imagestream/internal/logging"
	"imagestream/internal/metrics"
	"imagestream/internal/workers"

	"github.com/disintegration/imaging"
)

// ErrTargetCleared is returned by Target.Get after the target was cleared.
var ErrTargetCleared = errors.New("decode target cleared")

// Config configures an Engine.
type Config struct {
	// Pool bounds concurrent decodes. Nil means unbounded.
	Pool *workers.Pool
}

// Engine runs decodes asynchronously and hands out targets that must be
// released with Clear. Results are never cached: every Submit decodes the
// current bytes of its model.
type Engine struct {
	pool *workers.Pool

	mu      sync.Mutex
	targets map[*Target]struct{}
}

// NewEngine creates a decode engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		pool:    cfg.Pool,
		targets: make(map[*Target]struct{}),
	}
}

// Target is a pending or completed decode.
type Target struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	bitmap  *Bitmap
	err     error
	cleared bool
}

// Done is closed once the decode has finished.
func (t *Target) Done() <-chan struct{} {
	return t.done
}

// Get blocks until the decode finishes. A nil bitmap with a nil error means
// the model produced nothing.
func (t *Target) Get() (*Bitmap, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cleared {
		return nil, ErrTargetCleared
	}
	return t.bitmap, t.err
}

func (t *Target) complete(b *Bitmap, err error) {
	t.mu.Lock()
	if !t.cleared {
		t.bitmap, t.err = b, err
	}
	t.mu.Unlock()
	close(t.done)
}

// Submit starts decoding m. The returned target is tracked until Clear.
func (e *Engine) Submit(ctx context.Context, m Model, opts Options) *Target {
	tctx, cancel := context.WithCancel(ctx)
	t := &Target{
		ctx:    tctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	e.mu.Lock()
	e.targets[t] = struct{}{}
	e.mu.Unlock()
	metrics.EngineTargetsInFlight.Inc()

	go e.run(t, m, opts)
	return t
}

func (e *Engine) run(t *Target, m Model, opts Options) {
	var b *Bitmap
	decode := func() error {
		var err error
		b, err = safeDecode(t.ctx, m, opts)
		return err
	}

	var err error
	if e.pool != nil {
		err = e.pool.Do(t.ctx, decode)
	} else {
		err = decode()
	}

	if err == nil && b != nil && opts.Format == FormatARGB8888 {
		b.Image = toNRGBA(b.Image)
	}
	t.complete(b, err)
}

// safeDecode turns a decoder panic into an error.
func safeDecode(ctx context.Context, m Model, opts Options) (b *Bitmap, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("decoder panic for %s: %v", m.Key(), r)
			b, err = nil, fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return m.Decode(ctx, opts)
}

// Clear cancels t if it is still running and drops its bitmap. Clearing
// twice or clearing nil is a no-op.
func (e *Engine) Clear(t *Target) {
	if t == nil {
		return
	}

	e.mu.Lock()
	_, tracked := e.targets[t]
	delete(e.targets, t)
	e.mu.Unlock()
	if !tracked {
		return
	}
	metrics.EngineTargetsInFlight.Dec()

	t.cancel()

	t.mu.Lock()
	t.cleared = true
	t.bitmap = nil
	t.mu.Unlock()
}

// InFlight returns the number of targets submitted and not yet cleared.
func (e *Engine) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.targets)
}

// toNRGBA converts img to 8-bit non-premultiplied RGBA unless it already is.
func toNRGBA(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	return imaging.Clone(img)
}
