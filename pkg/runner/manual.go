package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/flowgraph/pkg/ports"
)

// ErrStalled is returned by Manual.Drive when work is still pending after the poll budget.
var ErrStalled = errors.New("work did not finish within the poll budget")

// Manual is a deterministic host for tests and embedders that own their own
// frame loop. Drive polls in place; spawned work waits in a queue until Step.
type Manual struct {
	mu     sync.Mutex
	queue  []unit
	errs   []error
	budget int
}

var _ ports.Host = (*Manual)(nil)

// unit is a queued walk and the run it reports to.
type unit struct {
	work ports.Pollable
	run  *Tracker
}

// NewManual creates a Manual host. budget bounds each Drive call; zero means 10000 polls.
func NewManual(budget int) *Manual {
	if budget <= 0 {
		budget = 10000
	}
	return &Manual{budget: budget}
}

// Drive polls work until it is done, or fails with ErrStalled once the budget is spent.
func (m *Manual) Drive(ctx context.Context, work ports.Pollable) error {
	for i := 0; i < m.budget; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := work.Poll(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return fmt.Errorf("%w (%d polls)", ErrStalled, m.budget)
}

// Spawn queues work for the next Step. A Tracker carried by ctx follows the
// work until it finishes.
func (m *Manual) Spawn(ctx context.Context, work ports.Pollable) {
	run := TrackerFrom(ctx)
	if run != nil {
		run.add()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, unit{work: work, run: run})
}

// Pending returns how many spawned units are still queued.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Step polls every queued unit once, in spawn order, and drops finished ones.
// Work spawned during the step is polled on the next step.
func (m *Manual) Step(ctx context.Context) {
	m.mu.Lock()
	batch := m.queue
	m.queue = nil
	m.mu.Unlock()

	var keep []unit
	for _, u := range batch {
		uctx := ctx
		if u.run != nil {
			uctx = WithTracker(ctx, u.run)
		}
		done, err := u.work.Poll(uctx)
		if err != nil {
			m.mu.Lock()
			m.errs = append(m.errs, err)
			m.mu.Unlock()
		}
		if err == nil && !done {
			keep = append(keep, u)
			continue
		}
		if u.run != nil {
			u.run.done(err)
		}
	}

	m.mu.Lock()
	m.queue = append(keep, m.queue...)
	m.mu.Unlock()
}

// RunUntilIdle steps until the queue is empty or maxSteps is reached.
// It reports whether the queue drained.
func (m *Manual) RunUntilIdle(ctx context.Context, maxSteps int) bool {
	for i := 0; i < maxSteps; i++ {
		if m.Pending() == 0 {
			return true
		}
		m.Step(ctx)
	}
	return m.Pending() == 0
}

// Errors returns the errors raised by spawned work so far.
func (m *Manual) Errors() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.errs...)
}
