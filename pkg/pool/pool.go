// Package pool runs independent tasks on a fixed number of workers.
//
// A failing task never cancels the others; results are delivered in
// arrival order and failures are joined once every task has finished.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Task is one unit of work.
type Task[T any] func(ctx context.Context) (T, error)

// Result is the outcome of the task at position Index of a batch.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Progress is called after each finished task with the number of finished
// tasks and the batch size. Calls are serialized.
type Progress func(done, total int)

// Pool bounds the number of tasks running at once.
type Pool struct {
	workers int
	sem     chan struct{}
}

// New returns a pool of n workers; n <= 0 means one per CPU.
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Pool{workers: n, sem: make(chan struct{}, n)}
}

func (p *Pool) Workers() int { return p.workers }

// Future is the pending result of a submitted task.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Wait blocks until the task finished or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the task finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Submit schedules one task on p. The task does not start before a worker
// slot is free; if ctx is cancelled first the future fails with ctx.Err().
func Submit[T any](ctx context.Context, p *Pool, task Task[T]) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		}
		defer func() { <-p.sem }()
		f.value, f.err = run(ctx, task)
	}()
	return f
}

// run calls task, turning a panic into an error so that one bad item does
// not take the batch down.
func run[T any](ctx context.Context, task Task[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}

// MapUnordered runs every task and sends each result as soon as it is
// available. The channel is closed after the last result. Tasks not yet
// started when ctx is cancelled report ctx.Err().
func MapUnordered[T any](ctx context.Context, p *Pool, tasks []Task[T]) <-chan Result[T] {
	out := make(chan Result[T], p.workers)
	in := make(chan int)

	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for i := range in {
			if err := ctx.Err(); err != nil {
				out <- Result[T]{Index: i, Err: err}
				continue
			}
			p.sem <- struct{}{}
			v, err := run(ctx, tasks[i])
			<-p.sem
			out <- Result[T]{Index: i, Value: v, Err: err}
		}
	}
	n := min(p.workers, len(tasks))
	wg.Add(n)
	for i := 0; i < n; i++ {
		go worker()
	}
	go func() {
		for i := range tasks {
			in <- i
		}
		close(in)
	}()
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Drain consumes results, calls fn for each successful one and progress
// after every result. It returns the joined task errors, each prefixed with
// the task index.
func Drain[T any](results <-chan Result[T], total int, progress Progress, fn func(Result[T]) error) error {
	var errs []error
	done := 0
	for r := range results {
		done++
		if r.Err == nil && fn != nil {
			r.Err = fn(r)
		}
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("task %d: %w", r.Index, r.Err))
		}
		if progress != nil {
			progress(done, total)
		}
	}
	return errors.Join(errs...)
}

// Map runs every task and returns the values in task order together with
// the joined errors of the failed tasks.
func Map[T any](ctx context.Context, p *Pool, tasks []Task[T], progress Progress) ([]T, error) {
	values := make([]T, len(tasks))
	err := Drain(MapUnordered(ctx, p, tasks), len(tasks), progress, func(r Result[T]) error {
		values[r.Index] = r.Value
		return nil
	})
	return values, err
}
