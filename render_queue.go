package gputext

import (
	"context"
	"errors"
	"sync"

	"github.com/gogpu/gputext/internal/queue"
)

// RenderQueue serializes work on a Context. Any goroutine may submit;
// one worker runs the work in submission order.
type RenderQueue struct {
	ctx *Context
	q   *queue.Queue

	mu  sync.Mutex
	err error
}

// NewRenderQueue starts a queue driving c with room for size pending
// items.
func NewRenderQueue(c *Context, size int) *RenderQueue {
	return &RenderQueue{ctx: c, q: queue.New(size)}
}

// Submit enqueues fn. The first error returned by any submitted function
// is reported by the next Sync.
func (rq *RenderQueue) Submit(fn func(*Context) error) error {
	if err := rq.q.Submit(func() {
		if err := fn(rq.ctx); err != nil {
			rq.mu.Lock()
			if rq.err == nil {
				rq.err = err
			}
			rq.mu.Unlock()
		}
	}); err != nil {
		return ErrClosed
	}
	return nil
}

// Sync waits for every previously submitted function and returns the
// first error since the last Sync.
func (rq *RenderQueue) Sync(ctx context.Context) error {
	if err := rq.q.Sync(ctx); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	rq.mu.Lock()
	defer rq.mu.Unlock()
	err := rq.err
	rq.err = nil
	return err
}

// Close runs the queued work and stops the worker. The Context is not
// closed.
func (rq *RenderQueue) Close() {
	rq.q.Close()
}
