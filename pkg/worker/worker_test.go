package worker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geoyee/eventbus/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_Submit(t *testing.T) {
	p := worker.NewWorkerPool(4, 10)
	p.Start()
	defer p.Stop(context.Background())

	var counter int32
	var wg sync.WaitGroup
	numJobs := 8
	wg.Add(numJobs)

	for i := 0; i < numJobs; i++ {
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			atomic.AddInt32(&counter, 1)
			time.Sleep(10 * time.Millisecond)
		}))
	}

	wg.Wait()
	assert.Equal(t, int32(numJobs), atomic.LoadInt32(&counter))
}

func TestWorkerPool_TrySubmitQueueFull(t *testing.T) {
	p := worker.NewWorkerPool(1, 1)
	p.Start()

	release := make(chan struct{})
	running := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		close(running)
		<-release
	}))
	<-running

	// the single worker is busy, one slot is left in the queue
	require.NoError(t, p.TrySubmit(func() {}))
	assert.Equal(t, 1, p.Pending())
	assert.ErrorIs(t, p.TrySubmit(func() {}), worker.ErrQueueFull)

	close(release)
	require.NoError(t, p.Stop(context.Background()))
}

func TestWorkerPool_Stop(t *testing.T) {
	p := worker.NewWorkerPool(4, 10)
	p.Start()

	var counter int32
	for i := 0; i < 8; i++ {
		require.NoError(t, p.Submit(func() {
			atomic.AddInt32(&counter, 1)
			time.Sleep(10 * time.Millisecond)
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
	assert.Equal(t, int32(8), atomic.LoadInt32(&counter))

	// Submitting to a stopped pool should return an error.
	assert.ErrorIs(t, p.Submit(func() {}), worker.ErrWorkerPoolClosed)
	assert.ErrorIs(t, p.TrySubmit(func() {}), worker.ErrWorkerPoolClosed)
	assert.NoError(t, p.Stop(ctx), "second Stop is a no-op")
}

func TestWorkerPool_StopTimeout(t *testing.T) {
	p := worker.NewWorkerPool(1, 1)
	p.Start()

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, p.Submit(func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Stop(ctx), context.DeadlineExceeded)
}

func TestWorkerPool_PanicHandler(t *testing.T) {
	recovered := make(chan any, 1)
	p := worker.NewWorkerPool(1, 4, worker.WithPanicHandler(func(r any) {
		recovered <- r
	}))
	p.Start()
	defer p.Stop(context.Background())

	require.NoError(t, p.Submit(func() { panic("boom") }))

	select {
	case r := <-recovered:
		assert.Equal(t, "boom", r)
	case <-time.After(time.Second):
		t.Fatal("panic was not reported")
	}

	// the worker survived the panic
	done := make(chan struct{})
	require.NoError(t, p.Submit(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking job")
	}
}

func TestNewWorkerPool_InvalidWorkers(t *testing.T) {
	assert.Panics(t, func() { worker.NewWorkerPool(0, 1) })
	assert.Equal(t, 3, worker.NewWorkerPool(3, 0).Workers())
}
