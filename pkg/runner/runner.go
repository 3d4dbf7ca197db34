package runner

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/aretw0/flowgraph/internal/logging"
	"github.com/aretw0/flowgraph/pkg/ports"
	"github.com/jonboulle/clockwork"
)

// Loop is the default ports.Host. Drive polls in the calling goroutine;
// spawned work runs in its own goroutine and outlives the walk that spawned it.
//
// Every spawned walk joins the Loop-wide Tracker and, when the spawning
// context carries one, the Tracker of its run. Spawned walks keep the
// context values of their spawner, so nested spawns stay in the same run.
type Loop struct {
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	all    *Tracker
	base   context.Context
	cancel context.CancelFunc
}

var _ ports.Host = (*Loop)(nil)

// NewLoop creates a Loop ready to drive and spawn work.
func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		interval: DefaultInterval,
		clock:    clockwork.NewRealClock(),
		logger:   logging.NewNop(),
		all:      NewTracker(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.base, l.cancel = context.WithCancel(context.Background())
	return l
}

// Drive polls work until it is done, fails or ctx ends. Work that is not
// suspended is polled again right away.
func (l *Loop) Drive(ctx context.Context, work ports.Pollable) error {
	for {
		done, err := work.Poll(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if s, ok := work.(ports.Suspender); ok && !s.Suspended() {
			if err := ctx.Err(); err != nil {
				return err
			}
			runtime.Gosched()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(l.interval):
		}
	}
}

// Spawn runs work in the background. It stops when the Loop is stopped;
// cancelling ctx does not stop it.
func (l *Loop) Spawn(ctx context.Context, work ports.Pollable) {
	trackers := []*Tracker{l.all}
	if run := TrackerFrom(ctx); run != nil {
		trackers = append(trackers, run)
	}
	for _, t := range trackers {
		t.add()
	}

	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(l.base, cancel)
	go func() {
		defer stop()
		defer cancel()
		err := l.Drive(wctx, work)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err != nil {
			l.logger.Error("spawned walk failed", "err", err)
		}
		for _, t := range trackers {
			t.done(err)
		}
	}()
}

// Wait blocks until every walk spawned on the Loop has finished, or ctx
// ends. It returns the first spawned walk error since the previous Wait.
func (l *Loop) Wait(ctx context.Context) error {
	return l.all.Wait(ctx)
}

// Stop cancels every spawned walk. A stopped Loop cancels later spawns
// right away.
func (l *Loop) Stop() {
	l.cancel()
}

// Tracker counts the walks spawned during one run and keeps the first error
// among them. Hosts register walks with it; callers Wait on it.
type Tracker struct {
	mu      sync.Mutex
	running int
	idle    chan struct{}
	err     error
}

// NewTracker creates an idle Tracker.
func NewTracker() *Tracker {
	idle := make(chan struct{})
	close(idle)
	return &Tracker{idle: idle}
}

type trackerKey struct{}

// WithTracker returns a context whose spawned walks report to t.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFrom returns the Tracker carried by ctx, or nil.
func TrackerFrom(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}

func (t *Tracker) add() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running == 0 {
		t.idle = make(chan struct{})
	}
	t.running++
}

func (t *Tracker) done(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil && t.err == nil {
		t.err = err
	}
	t.running--
	if t.running == 0 {
		close(t.idle)
	}
}

// Running returns the number of walks still in flight.
func (t *Tracker) Running() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Wait blocks until no tracked walk is running or ctx ends. It returns and
// clears the first walk error, or returns the context error.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	idle := t.idle
	t.mu.Unlock()
	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.err
	t.err = nil
	return err
}
