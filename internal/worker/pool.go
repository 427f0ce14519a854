// Package worker implements a bounded goroutine pool that runs
// blocking runtime-driver calls off the HTTP handler goroutine, so
// request handlers are never blocked in native subprocess I/O for
// long (spec.md §5). This is not a distributed compute node — just a
// local dispatch mechanism, renamed from the teacher's worker package
// after dropping the cluster-node responsibilities it carried there.
package worker

import (
	"context"
	"runtime"
)

// Job is a unit of work dispatched to the pool. It must respect ctx
// cancellation so the caller can abandon an in-flight subprocess.
type Job func(ctx context.Context) (any, error)

// Pool bounds the number of concurrently in-flight Jobs.
type Pool struct {
	sem chan struct{}
}

// New creates a Pool with size concurrent slots. size <= 0 defaults
// to GOMAXPROCS.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
		if size < 1 {
			size = 1
		}
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// result carries a Job's outcome back to the awaiting caller.
type result struct {
	value any
	err   error
}

// Dispatch runs job on a pool goroutine and blocks until it completes
// or ctx is done. If ctx is canceled first, Dispatch returns ctx.Err()
// immediately; the job's own ctx (the same context) is expected to
// tear down its subprocess promptly.
func (p *Pool) Dispatch(ctx context.Context, job Job) (any, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.sem }()

	done := make(chan result, 1)
	go func() {
		v, err := job(ctx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
