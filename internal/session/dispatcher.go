package session

import (
	"errors"
	"sync"

	"imagestream/internal/logging"
	"imagestream/internal/metrics"
)

// ErrDispatcherClosed is returned by Post after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// DefaultMailboxSize is the mailbox capacity used by NewDispatcher when
// given a non-positive size.
const DefaultMailboxSize = 16

// Sink receives the events of one session. A Dispatcher never calls a sink
// from more than one goroutine at a time.
type Sink interface {
	Success(chunk []byte)
	Error(code, message string, details any)
	EndOfStream()
}

// Dispatcher is a delivery context: events posted to it run one at a time,
// in post order, on a single goroutine. Posting blocks while the mailbox is
// full, so a slow consumer slows its producers down.
type Dispatcher struct {
	mailbox chan func()
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts a dispatcher with a mailbox of the given size.
func NewDispatcher(size int) *Dispatcher {
	if size <= 0 {
		size = DefaultMailboxSize
	}
	d := &Dispatcher{
		mailbox: make(chan func(), size),
		done:    make(chan struct{}),
	}
	go d.drain()
	return d
}

func (d *Dispatcher) drain() {
	defer close(d.done)
	for fn := range d.mailbox {
		metrics.DispatcherQueueDepth.Dec()
		d.deliver(fn)
	}
}

func (d *Dispatcher) deliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("dispatcher: sink panic: %v", r)
		}
	}()
	fn()
}

// Post queues fn for delivery.
func (d *Dispatcher) Post(fn func()) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	metrics.DispatcherQueueDepth.Inc()
	d.mailbox <- fn
	return nil
}

// Close stops accepting events, delivers the ones already queued and
// returns once the delivery goroutine has exited. It is safe to call more
// than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.mailbox)
	}
	d.mu.Unlock()
	<-d.done
}

// Done is closed when the delivery goroutine has exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Bind returns a Sink whose calls are posted to d and delivered to sink.
func (d *Dispatcher) Bind(sink Sink) Sink {
	return &postingSink{d: d, sink: sink}
}

type postingSink struct {
	d    *Dispatcher
	sink Sink
}

func (p *postingSink) post(event string, fn func()) {
	if err := p.d.Post(fn); err != nil {
		logging.Debug("dispatcher: dropped %s: %v", event, err)
	}
}

func (p *postingSink) Success(chunk []byte) {
	p.post("success", func() { p.sink.Success(chunk) })
}

func (p *postingSink) Error(code, message string, details any) {
	p.post("error", func() { p.sink.Error(code, message, details) })
}

func (p *postingSink) EndOfStream() {
	p.post("endOfStream", p.sink.EndOfStream)
}
