package queue

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrFull   = errors.New("queue full")
	ErrClosed = errors.New("queue closed")
)

// Dispatcher is a bounded FIFO queue drained by a fixed pool of workers.
type Dispatcher[T any] struct {
	items   chan T
	workers int
	handle  func(context.Context, T)

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher holding at most size pending items.
func NewDispatcher[T any](size, workers int, handle func(context.Context, T)) *Dispatcher[T] {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher[T]{
		items:   make(chan T, size),
		workers: workers,
		handle:  handle,
	}
}

// Start launches the workers. Items are handled with ctx until Close.
func (d *Dispatcher[T]) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	d.wg.Add(d.workers)
	for range d.workers {
		go func() {
			defer d.wg.Done()
			for item := range d.items {
				d.handle(ctx, item)
			}
		}()
	}
}

// Submit enqueues v without blocking.
func (d *Dispatcher[T]) Submit(v T) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.items <- v:
		return nil
	default:
		return ErrFull
	}
}

// Len returns the number of pending items.
func (d *Dispatcher[T]) Len() int {
	return len(d.items)
}

// Close stops accepting items and waits for the workers to drain the queue.
// Items submitted to a dispatcher that was never started are handled inline.
func (d *Dispatcher[T]) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	started := d.started
	close(d.items)
	d.mu.Unlock()

	if !started {
		for item := range d.items {
			d.handle(context.Background(), item)
		}
		return
	}
	d.wg.Wait()
}
