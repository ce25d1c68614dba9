package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(2, nil)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Do(context.Background(), func() error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("Do() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestPoolAcquireHonorsContext(t *testing.T) {
	pool := NewPool(1, nil)
	release, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() error = %v, want DeadlineExceeded", err)
	}
}

func TestPoolReleaseIsIdempotent(t *testing.T) {
	pool := NewPool(1, nil)
	release, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	release()
	release()

	// Exactly one slot must be free again.
	r1, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer r1()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx); err == nil {
		t.Error("second Acquire succeeded, double release leaked a slot")
	}
}

type blockingGate struct{ err error }

func (g blockingGate) Wait(context.Context) error { return g.err }

func TestPoolGateError(t *testing.T) {
	gateErr := errors.New("memory critical")
	pool := NewPool(4, blockingGate{err: gateErr})

	called := false
	err := pool.Do(context.Background(), func() error {
		called = true
		return nil
	})
	if !errors.Is(err, gateErr) {
		t.Errorf("Do() error = %v, want gate error", err)
	}
	if called {
		t.Error("fn ran despite gate error")
	}
}

func TestNewPoolMinimumSize(t *testing.T) {
	if got := NewPool(0, nil).Size(); got != 1 {
		t.Errorf("Size() = %d, want 1", got)
	}
}
