package ports

import "context"

// Pollable is a unit of work advanced one step at a time.
type Pollable interface {
	// Poll advances the work. It reports done when nothing is left to do.
	// An error ends the work.
	Poll(ctx context.Context) (done bool, err error)
}

// Suspender is implemented by work that can tell whether it is waiting on
// something external. Hosts poll non-suspended work again without delay.
type Suspender interface {
	Suspended() bool
}

// Host is the scheduler that drives graph walks. Graphs never spawn
// goroutines on their own; every walk goes through a Host.
type Host interface {
	// Drive polls work until it is done, fails or ctx ends.
	Drive(ctx context.Context, work Pollable) error
	// Spawn schedules work independently of the caller. It must not block.
	Spawn(ctx context.Context, work Pollable)
}
