package core

import (
	"context"
	"errors"
	"sync"

	"github.com/geoyee/eventbus/pkg/worker"
	"go.uber.org/multierr"
)

// Dispatcher runs callback jobs independently of the publisher.
// Dispatch must not block on job execution.
type Dispatcher interface {
	// Dispatch schedules job. It returns ErrDispatcherClosed after Close.
	Dispatch(job func()) error

	// Close refuses new jobs and waits for scheduled ones until ctx is done
	Close(ctx context.Context) error
}

// GoDispatcher runs every job on its own goroutine
type GoDispatcher struct {
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewGoDispatcher creates a GoDispatcher
func NewGoDispatcher() *GoDispatcher {
	return &GoDispatcher{}
}

func (d *GoDispatcher) Dispatch(job func()) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		job()
	}()
	return nil
}

func (d *GoDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PoolDispatcher runs jobs on a bounded worker pool. When the queue is full a
// job overflows onto its own goroutine, so Dispatch never blocks and a callback
// that publishes cannot deadlock the pool.
type PoolDispatcher struct {
	pool       *worker.WorkerPool
	overflow   *GoDispatcher
	onOverflow func()
}

// PoolOption configures a PoolDispatcher
type PoolOption func(*PoolDispatcher)

// OnOverflow sets a function called each time a job overflows the queue
func OnOverflow(fn func()) PoolOption {
	return func(d *PoolDispatcher) {
		d.onOverflow = fn
	}
}

// NewPoolDispatcher creates and starts a PoolDispatcher.
// Panics escaping a job are passed to onPanic when it is not nil.
func NewPoolDispatcher(workers, queueSize int, onPanic worker.PanicHandler, opts ...PoolOption) *PoolDispatcher {
	var poolOpts []worker.Option
	if onPanic != nil {
		poolOpts = append(poolOpts, worker.WithPanicHandler(onPanic))
	}
	d := &PoolDispatcher{
		pool:     worker.NewWorkerPool(workers, queueSize, poolOpts...),
		overflow: NewGoDispatcher(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.pool.Start()
	return d
}

func (d *PoolDispatcher) Dispatch(job func()) error {
	err := d.pool.TrySubmit(job)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, worker.ErrQueueFull):
		if d.onOverflow != nil {
			d.onOverflow()
		}
		return d.overflow.Dispatch(job)
	case errors.Is(err, worker.ErrWorkerPoolClosed):
		return ErrDispatcherClosed
	default:
		return err
	}
}

// Pending returns the number of jobs waiting in the queue
func (d *PoolDispatcher) Pending() int {
	return d.pool.Pending()
}

func (d *PoolDispatcher) Close(ctx context.Context) error {
	return multierr.Combine(d.pool.Stop(ctx), d.overflow.Close(ctx))
}
