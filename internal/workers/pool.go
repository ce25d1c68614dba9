package workers

import (
	"context"

	"imagestream/internal/metrics"

	"golang.org/x/sync/semaphore"
)

// Gate holds back work while a shared resource is exhausted.
// memory.Monitor implements it.
type Gate interface {
	Wait(ctx context.Context) error
}

// Pool bounds how many decodes run at once. A slot is held for the decode
// of one target only; encoding and writing happen after it is released.
type Pool struct {
	sem  *semaphore.Weighted
	size int
	gate Gate
}

// NewPool creates a pool with size slots. A nil gate never blocks.
func NewPool(size int, gate Gate) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
		gate: gate,
	}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// Acquire waits for the gate and then for a free slot. The returned
// release func must be called exactly once.
func (p *Pool) Acquire(ctx context.Context) (release func(), err error) {
	if p.gate != nil {
		if err := p.gate.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	metrics.WorkerSlotsBusy.Inc()

	released := false
	return func() {
		if released {
			return
		}
		released = true
		metrics.WorkerSlotsBusy.Dec()
		p.sem.Release(1)
	}, nil
}

// Do runs fn while holding a slot.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	release, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
