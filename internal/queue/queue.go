// Package queue provides an ordered single-consumer work queue.
//
// Producers on any goroutine submit closures; one worker goroutine runs
// them in submission order. Owners of unsynchronised state (a device
// context, its caches and batcher) use it to keep all access on the
// worker.
package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when submitting to a closed queue.
var ErrClosed = errors.New("queue: closed")

// DefaultSize is the buffer size used when New is given a non-positive size.
const DefaultSize = 64

// Queue runs submitted work on a single goroutine in order.
//
// Queue is safe for concurrent use.
type Queue struct {
	work chan func()
	done chan struct{}
	wg   sync.WaitGroup

	// mu orders Submit against Close so no send happens after close.
	mu      sync.RWMutex
	running atomic.Bool
}

// New starts a queue whose buffer holds size pending items.
func New(size int) *Queue {
	if size <= 0 {
		size = DefaultSize
	}
	q := &Queue{
		work: make(chan func(), size),
		done: make(chan struct{}),
	}
	q.running.Store(true)
	q.wg.Add(1)
	go q.worker()
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for fn := range q.work {
		if fn != nil {
			fn()
		}
	}
	close(q.done)
}

// Submit enqueues fn. It blocks while the buffer is full.
func (q *Queue) Submit(fn func()) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running.Load() {
		return ErrClosed
	}
	q.work <- fn
	return nil
}

// Sync waits until every item submitted before the call has run.
func (q *Queue) Sync(ctx context.Context) error {
	mark := make(chan struct{})
	if err := q.Submit(func() { close(mark) }); err != nil {
		return err
	}
	select {
	case <-mark:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the queue accepts work.
func (q *Queue) Running() bool {
	return q.running.Load()
}

// Close stops accepting work, runs what is queued and waits for the
// worker to exit. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.running.Swap(false) {
		close(q.work)
	}
	q.mu.Unlock()
	q.wg.Wait()
}
