// Package pool provides the bounded-concurrency admission gate fronting all
// I/O-bound pipeline work. Submission order is preserved; completion order
// is not.
package pool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Task is one unit of submitted work. Tasks observe ctx for cooperative
// cancellation at their next suspension point.
type Task func(ctx context.Context) error

// Pool admits at most width tasks at a time. Width zero degrades to strictly
// sequential inline execution with no scheduler overhead.
type Pool struct {
	width int64
	sem   *semaphore.Weighted
	wg    sync.WaitGroup

	mu      sync.Mutex
	firstEr error
}

// New creates a pool of the given width. Negative widths are treated as zero.
func New(width int) *Pool {
	if width < 0 {
		width = 0
	}
	p := &Pool{width: int64(width)}
	if width > 0 {
		p.sem = semaphore.NewWeighted(int64(width))
	}
	return p
}

// Submit admits the task, blocking while the pool is saturated. When the
// context is cancelled the task is not started and the context error is
// returned.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if p.sem == nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.record(task(ctx))
		return nil
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		if ctx.Err() != nil {
			return
		}
		p.record(task(ctx))
	}()
	return nil
}

// Wait blocks until every admitted task has finished and returns the first
// task error observed, if any.
func (p *Pool) Wait() error {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.firstEr
}

func (p *Pool) record(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	if p.firstEr == nil {
		p.firstEr = err
	}
	p.mu.Unlock()
}
