package registry

import (
	"context"
	"sync"
	"time"
)

// Delay is returned by commands that suspend for a fixed amount of time.
type Delay time.Duration

// Seconds builds a Delay from fractional seconds.
func Seconds(s float64) Delay {
	return Delay(time.Duration(s * float64(time.Second)))
}

// Duration returns the delay as a time.Duration.
func (d Delay) Duration() time.Duration { return time.Duration(d) }

// Future is a value that becomes available later. Commands returning a
// *Future suspend their node until it resolves.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// Resolver completes a Future. Only the first call has an effect.
type Resolver func(value any, err error)

// NewFuture returns an unresolved future and the function that resolves it.
func NewFuture() (*Future, Resolver) {
	f := &Future{done: make(chan struct{})}
	return f, f.resolve
}

// Async runs fn in its own goroutine and returns a future of its result.
func Async(ctx context.Context, fn func(context.Context) (any, error)) *Future {
	f, resolve := NewFuture()
	go func() {
		resolve(fn(ctx))
	}()
	return f
}

// Resolved returns a future that is already complete.
func Resolved(value any) *Future {
	f, resolve := NewFuture()
	resolve(value, nil)
	return f
}

func (f *Future) resolve(value any, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done reports whether the future has resolved. It never blocks.
func (f *Future) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future resolves or ctx ends.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the resolved value. It must only be called once Done is true.
func (f *Future) Result() (any, error) {
	return f.value, f.err
}

// Task is a future without a value.
type Task struct {
	f *Future
}

// NewTask returns an unfinished task and the function that completes it.
func NewTask() (*Task, func(error)) {
	f, resolve := NewFuture()
	return &Task{f: f}, func(err error) { resolve(nil, err) }
}

// Go runs fn in its own goroutine and returns a task tracking it.
func Go(ctx context.Context, fn func(context.Context) error) *Task {
	return &Task{f: Async(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})}
}

// Done reports whether the task has finished. It never blocks.
func (t *Task) Done() bool { return t.f.Done() }

// Err returns the task's error once Done is true.
func (t *Task) Err() error {
	_, err := t.f.Result()
	return err
}
