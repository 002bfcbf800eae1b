package worker

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrWorkerPoolClosed = errors.New("worker pool is closed")
	ErrQueueFull        = errors.New("worker pool queue is full")
)

// Job represents a task to be executed by a worker.
type Job func()

// PanicHandler receives the value recovered from a panicking job.
type PanicHandler func(recovered any)

// Option configures a WorkerPool.
type Option func(*WorkerPool)

// WithPanicHandler sets the function called when a job panics.
// Without one, panics are recovered and discarded.
func WithPanicHandler(h PanicHandler) Option {
	return func(p *WorkerPool) {
		p.onPanic = h
	}
}

// WorkerPool is a fixed-size pool of goroutines draining a bounded job queue.
type WorkerPool struct {
	jobs    chan Job
	workers int
	onPanic PanicHandler
	wg      sync.WaitGroup

	mu      sync.RWMutex // guards closed against sends on a closed queue
	closed  bool
	started bool
}

// NewWorkerPool creates a new WorkerPool with a given number of workers and job queue size.
func NewWorkerPool(workers int, queueSize int, opts ...Option) *WorkerPool {
	if workers <= 0 {
		panic("number of workers must be positive")
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &WorkerPool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. Calling it more than once has no effect.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.run()
	}
}

// Stop stops accepting jobs and waits for queued and running jobs to finish,
// or for ctx to be done, in which case ctx.Err() is returned.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the worker's execution loop.
func (p *WorkerPool) run() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.execute(job)
	}
}

func (p *WorkerPool) execute(job Job) {
	defer func() {
		if r := recover(); r != nil && p.onPanic != nil {
			p.onPanic(r)
		}
	}()
	job()
}

// Submit sends a job to the worker pool, blocking while the queue is full.
// It returns ErrWorkerPoolClosed if the pool is closed.
func (p *WorkerPool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrWorkerPoolClosed
	}
	p.jobs <- job
	return nil
}

// TrySubmit queues a job without blocking.
// It returns ErrQueueFull when no queue slot is free.
func (p *WorkerPool) TrySubmit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrWorkerPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued jobs not yet picked up by a worker.
func (p *WorkerPool) Pending() int {
	return len(p.jobs)
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}
