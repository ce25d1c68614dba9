package session

import (
	"errors"
	"sync"
	"testing"
)

func TestDispatcher_DeliversInPostOrder(t *testing.T) {
	d := NewDispatcher(4)
	var got []int
	for i := 0; i < 100; i++ {
		if err := d.Post(func() { got = append(got, i) }); err != nil {
			t.Fatal(err)
		}
	}
	d.Close()

	if len(got) != 100 {
		t.Fatalf("delivered %d events, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("event %d delivered as %d", i, v)
		}
	}
}

func TestDispatcher_SerializesConcurrentPosters(t *testing.T) {
	d := NewDispatcher(2)
	var mu sync.Mutex
	running := 0
	overlap := false

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = d.Post(func() {
					mu.Lock()
					running++
					if running > 1 {
						overlap = true
					}
					mu.Unlock()

					mu.Lock()
					running--
					mu.Unlock()
				})
			}
		}()
	}
	wg.Wait()
	d.Close()

	if overlap {
		t.Error("events ran concurrently")
	}
}

func TestDispatcher_PostAfterClose(t *testing.T) {
	d := NewDispatcher(0)
	d.Close()
	d.Close()

	if err := d.Post(func() {}); !errors.Is(err, ErrDispatcherClosed) {
		t.Errorf("Post after Close = %v, want ErrDispatcherClosed", err)
	}
	select {
	case <-d.Done():
	default:
		t.Error("Done not closed after Close")
	}
}

func TestDispatcher_SurvivesSinkPanic(t *testing.T) {
	d := NewDispatcher(0)
	ran := false
	_ = d.Post(func() { panic("sink bug") })
	_ = d.Post(func() { ran = true })
	d.Close()

	if !ran {
		t.Error("event after a panicking one was not delivered")
	}
}

func TestBind_DropsEventsAfterClose(t *testing.T) {
	d := NewDispatcher(0)
	sink := &recordingSink{t: t}
	bound := d.Bind(sink)

	bound.Success([]byte("a"))
	d.Close()
	bound.EndOfStream()

	if got := kinds(sink.snapshot()); len(got) != 1 || got[0] != "success" {
		t.Errorf("events = %v", got)
	}
}
