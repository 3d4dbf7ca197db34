package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/google/uuid"
)

// Traversal is one walk through the graph. Each Poll advances at most one
// node. When a node leads to a control input other than From, the walk hands
// that destination to the host as a new walk and ends.
type Traversal struct {
	id      string
	g       *Graph
	start   string
	current string
	exec    execution

	started bool
	done    bool
	err     error
	steps   int
	begun   time.Time
	entered time.Time
}

func (g *Graph) newTraversal(start string) *Traversal {
	return &Traversal{
		id:      uuid.NewString(),
		g:       g,
		start:   start,
		current: start,
	}
}

// ID returns the walk id.
func (t *Traversal) ID() string { return t.id }

// Current returns the node the walk is at.
func (t *Traversal) Current() string {
	t.g.mu.Lock()
	defer t.g.mu.Unlock()
	return t.current
}

// Steps returns how many nodes the walk has completed.
func (t *Traversal) Steps() int {
	t.g.mu.Lock()
	defer t.g.mu.Unlock()
	return t.steps
}

// Err returns the error that ended the walk, if any.
func (t *Traversal) Err() error {
	t.g.mu.Lock()
	defer t.g.mu.Unlock()
	return t.err
}

// Suspended reports whether the current node is waiting on a timer or future.
func (t *Traversal) Suspended() bool {
	t.g.mu.Lock()
	defer t.g.mu.Unlock()
	return t.exec.state == domain.StateWaiting
}

// Poll advances the walk by one step. Hooks fire after the lock is released.
func (t *Traversal) Poll(ctx context.Context) (bool, error) {
	var events []func()
	t.g.mu.Lock()
	done, err := t.poll(ctx, &events)
	t.g.mu.Unlock()
	for _, fire := range events {
		fire()
	}
	return done, err
}

func (t *Traversal) poll(ctx context.Context, events *[]func()) (bool, error) {
	g := t.g
	if t.done {
		return true, t.err
	}
	now := g.clock.Now()
	if !t.started {
		t.started = true
		t.begun = now
		t.emitTraversal(ctx, events, domain.EventTraversalStart, nil)
	}
	if err := ctx.Err(); err != nil {
		return t.finish(ctx, events, err)
	}

	n, ok := g.nodes.Get(t.current)
	if !ok {
		return t.finish(ctx, events, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, t.current))
	}
	if t.exec.state != domain.StateWaiting {
		t.entered = now
		t.emitNode(ctx, events, domain.EventNodeEnter, n, nil)
	}

	done, err := n.step(ctx, newResolution(), &t.exec)
	if err != nil {
		g.logger.Error("node failed", "traversal", t.id, "node", n.id, "command", n.command, "err", err)
		t.emitNode(ctx, events, domain.EventNodeError, n, err)
		return t.finish(ctx, events, err)
	}
	if !done {
		return false, nil
	}
	t.steps++
	t.emitNode(ctx, events, domain.EventNodeLeave, n, nil)

	next := n.nextControl(&t.exec)
	t.exec = execution{}
	if next == nil {
		return t.finish(ctx, events, nil)
	}
	dest, err := g.lookupPort(*next)
	if err != nil {
		return t.finish(ctx, events, &domain.PortError{Ref: *next, Err: domain.ErrDanglingConnection})
	}
	if dest.name == domain.PortFrom {
		t.current = dest.node
		return false, nil
	}
	g.logger.Debug("walk branched", "traversal", t.id, "node", n.id, "to", next.String())
	g.host.Spawn(ctx, g.newTraversal(dest.node))
	return t.finish(ctx, events, nil)
}

func (t *Traversal) finish(ctx context.Context, events *[]func(), err error) (bool, error) {
	t.done = true
	t.err = err
	t.exec = execution{}
	t.emitTraversal(ctx, events, domain.EventTraversalEnd, err)
	return true, err
}

func (t *Traversal) emitNode(ctx context.Context, events *[]func(), typ domain.EventType, n *Node, err error) {
	var hook func(context.Context, *domain.NodeEvent)
	switch typ {
	case domain.EventNodeEnter:
		hook = t.g.hooks.OnNodeEnter
	case domain.EventNodeLeave:
		hook = t.g.hooks.OnNodeLeave
	case domain.EventNodeError:
		hook = t.g.hooks.OnNodeError
	}
	if hook == nil {
		return
	}
	now := t.g.clock.Now()
	ev := &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: now, Type: typ, TraversalID: t.id},
		NodeID:    n.id,
		Command:   n.command,
		Err:       err,
	}
	if typ != domain.EventNodeEnter {
		ev.Elapsed = now.Sub(t.entered)
	}
	*events = append(*events, func() { hook(ctx, ev) })
}

func (t *Traversal) emitTraversal(ctx context.Context, events *[]func(), typ domain.EventType, err error) {
	hook := t.g.hooks.OnTraversalStart
	if typ == domain.EventTraversalEnd {
		hook = t.g.hooks.OnTraversalEnd
	}
	if hook == nil {
		return
	}
	now := t.g.clock.Now()
	ev := &domain.TraversalEvent{
		EventBase:   domain.EventBase{Timestamp: now, Type: typ, TraversalID: t.id},
		StartNodeID: t.start,
		Steps:       t.steps,
		Err:         err,
	}
	if typ == domain.EventTraversalEnd {
		ev.Elapsed = now.Sub(t.begun)
	}
	*events = append(*events, func() { hook(ctx, ev) })
}
