// Package buffer provides the queue that decouples a model's streaming callback from
// the consumer of a stream.
package buffer

import (
	"sync"
)

// Unbounded provides non-blocking sends with unlimited buffering, so a producer
// callback never waits on a slow consumer.
//
//	buf := buffer.NewUnbounded[string]()
//	go func() {
//	    defer buf.Close()
//	    buf.Send("a") // never blocks
//	}()
//	for item := range buf.Receive() {
//	    ...
//	}
//
// A consumer that stops reading early must call Abort, otherwise the goroutine that
// feeds Receive stays blocked.
type Unbounded[T any] struct {
	mu     sync.Mutex
	items  []T
	cond   *sync.Cond
	closed bool
	out    chan T
	done   chan struct{}
	abort  sync.Once
}

// NewUnbounded creates a new unbounded buffer.
func NewUnbounded[T any]() *Unbounded[T] {
	b := &Unbounded[T]{
		items: make([]T, 0, 64),
		out:   make(chan T, 1),
		done:  make(chan struct{}),
	}
	b.cond = sync.NewCond(&b.mu)
	go b.drainLoop()
	return b
}

// drainLoop moves items from the queue to the output channel until the buffer is
// closed and empty, or aborted.
func (b *Unbounded[T]) drainLoop() {
	defer close(b.out)
	for {
		item, ok := b.dequeue()
		if !ok {
			return
		}
		select {
		case b.out <- item:
		case <-b.done:
			return
		}
	}
}

// dequeue blocks until an item is available or the buffer is closed. It returns
// false once the buffer is closed and empty.
func (b *Unbounded[T]) dequeue() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.items) == 0 && !b.closed {
		b.cond.Wait()
	}
	if len(b.items) == 0 {
		var zero T
		return zero, false
	}

	item := b.items[0]
	b.items = b.items[1:]
	return item, true
}

// Send adds an item to the buffer. It never blocks. Items sent after Close or Abort
// are dropped.
func (b *Unbounded[T]) Send(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.items = append(b.items, item)
	b.cond.Signal()
}

// Receive returns the output channel. It is closed after Close once every queued item
// has been delivered, or right after Abort.
func (b *Unbounded[T]) Receive() <-chan T {
	return b.out
}

// Close stops accepting items. Queued items are still delivered. It is safe to call
// multiple times.
func (b *Unbounded[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.cond.Signal()
}

// Abort discards queued items and releases the delivery goroutine. Use it when the
// consumer stops reading before the channel is closed.
func (b *Unbounded[T]) Abort() {
	b.abort.Do(func() { close(b.done) })

	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.items = nil
	b.cond.Signal()
}

// Len returns the current number of queued items.
func (b *Unbounded[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// IsClosed returns true if the buffer has been closed or aborted.
func (b *Unbounded[T]) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
