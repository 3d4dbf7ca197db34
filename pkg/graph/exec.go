package graph

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/registry"
	"github.com/aretw0/flowgraph/pkg/schema"
)

// execution is the progress of one node run. A node driven by several walks
// at once has one execution per walk.
type execution struct {
	state   domain.ExecState
	next    *domain.PortRef
	pending *suspension
}

type suspension struct {
	deadline time.Time
	task     *registry.Task
	future   *registry.Future
	args     []any
}

// resolution tracks the auto-run nodes being evaluated by one data pull.
type resolution struct {
	visiting map[string]bool
}

func newResolution() *resolution {
	return &resolution{visiting: make(map[string]bool)}
}

// Run executes the node synchronously. Commands that suspend are rejected.
func (n *Node) Run(ctx context.Context) error {
	defer n.lock()()
	if n.g == nil {
		return &domain.NodeRunError{NodeID: n.id, Command: n.command, Err: domain.ErrNodeNotFound}
	}
	return n.runSync(ctx, newResolution())
}

// RunStep advances the node's own execution by one step. It reports done
// once the command has completed and its outputs are written.
func (n *Node) RunStep(ctx context.Context) (bool, error) {
	defer n.lock()()
	if n.g == nil {
		return true, &domain.NodeRunError{NodeID: n.id, Command: n.command, Err: domain.ErrNodeNotFound}
	}
	return n.step(ctx, newResolution(), &n.exec)
}

// NextControlPort returns the input the node's last execution leads to:
// the override set through the node handle, else the first edge of Next.
// It returns nil when there is nowhere to go.
func (n *Node) NextControlPort() *domain.PortRef {
	defer n.lock()()
	return n.nextControl(&n.exec)
}

func (n *Node) runSync(ctx context.Context, res *resolution) error {
	if n.cmd == nil {
		return &domain.CommandError{Command: n.command, Err: domain.ErrUnknownCommand}
	}
	if n.cmd.Returns.Suspends() {
		return n.fail(domain.ErrSyncRunOnSuspendable)
	}
	var ex execution
	ret, args, err := n.invoke(ctx, res, &ex)
	if err != nil {
		return n.fail(err)
	}
	if err := n.complete(ret, args); err != nil {
		return n.fail(err)
	}
	return nil
}

func (n *Node) step(ctx context.Context, res *resolution, ex *execution) (bool, error) {
	if n.cmd == nil {
		return true, &domain.CommandError{Command: n.command, Err: domain.ErrUnknownCommand}
	}
	if ex.state == domain.StateWaiting {
		if err := ctx.Err(); err != nil {
			n.reset(ex)
			return true, err
		}
		return n.poll(ex)
	}

	n.enter(ex, domain.StateRunning)
	ret, args, err := n.invoke(ctx, res, ex)
	if err != nil {
		n.reset(ex)
		return true, n.fail(err)
	}

	s := &suspension{args: args}
	switch n.cmd.Returns {
	case domain.ReturnTimerDelay:
		d, ok := ret.(registry.Delay)
		if !ok {
			n.reset(ex)
			return true, n.fail(fmt.Errorf("expected registry.Delay, got %T", ret))
		}
		s.deadline = n.g.clock.Now().Add(d.Duration())
	case domain.ReturnFutureVoid:
		task, _ := ret.(*registry.Task)
		if task == nil {
			return true, n.finish(ex, nil, args)
		}
		s.task = task
	case domain.ReturnFutureValue:
		future, _ := ret.(*registry.Future)
		if future == nil {
			return true, n.finish(ex, nil, args)
		}
		s.future = future
	default:
		return true, n.finish(ex, ret, args)
	}

	ex.pending = s
	n.enter(ex, domain.StateWaiting)
	return n.poll(ex)
}

func (n *Node) poll(ex *execution) (bool, error) {
	s := ex.pending
	switch {
	case s.task != nil:
		if !s.task.Done() {
			return false, nil
		}
		if err := s.task.Err(); err != nil {
			n.reset(ex)
			return true, n.fail(err)
		}
		return true, n.finish(ex, nil, s.args)
	case s.future != nil:
		if !s.future.Done() {
			return false, nil
		}
		v, err := s.future.Result()
		if err != nil {
			n.reset(ex)
			return true, n.fail(err)
		}
		return true, n.finish(ex, v, s.args)
	default:
		if n.g.clock.Now().Before(s.deadline) {
			return false, nil
		}
		return true, n.finish(ex, nil, s.args)
	}
}

func (n *Node) enter(ex *execution, state domain.ExecState) {
	ex.state = state
	n.state = state
}

func (n *Node) reset(ex *execution) {
	ex.pending = nil
	n.enter(ex, domain.StateNotStarted)
}

func (n *Node) finish(ex *execution, ret any, args []any) error {
	ex.pending = nil
	n.enter(ex, domain.StateDone)
	if err := n.complete(ret, args); err != nil {
		return n.fail(err)
	}
	return nil
}

func (n *Node) fail(err error) error {
	return &domain.NodeRunError{NodeID: n.id, Command: n.command, Err: err}
}

// invoke gathers the arguments from the ports and calls the command.
func (n *Node) invoke(ctx context.Context, res *resolution, ex *execution) (any, []any, error) {
	ex.next = nil
	args := make([]any, len(n.cmd.Params))
	for i, prm := range n.cmd.Params {
		if prm.Self {
			args[i] = &self{n: n, ex: ex, res: res}
			continue
		}
		p, err := n.port(prm.Name)
		if err != nil {
			return nil, nil, err
		}
		v, err := n.g.portValue(ctx, p, res)
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}
	ret, err := n.cmd.Invoke(ctx, args)
	if err != nil {
		return nil, nil, err
	}
	return ret, args, nil
}

// complete writes the Result port and copies output parameters to their ports.
func (n *Node) complete(ret any, args []any) error {
	if n.cmd.Returns.HasResult() {
		p, err := n.port(domain.PortResult)
		if err != nil {
			return err
		}
		if err := p.setValue(ret); err != nil {
			return err
		}
	}
	for pair := n.ports.Oldest(); pair != nil; pair = pair.Next() {
		p := pair.Value
		if p.param < 0 || p.direction != domain.Output || p.kind != domain.KindData {
			continue
		}
		if err := p.setValue(args[p.param]); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) nextControl(ex *execution) *domain.PortRef {
	if n.g == nil {
		return nil
	}
	name, index := domain.PortNext, 0
	if ex.next != nil {
		name, index = ex.next.Port, ex.next.Index
	}
	p, ok := n.ports.Get(name)
	if !ok {
		return nil
	}
	ref, ok := n.g.links.first(p.ref(index))
	if !ok {
		return nil
	}
	return &ref
}

// runAuto executes an auto-run node on behalf of a consumer reading its output.
func (n *Node) runAuto(ctx context.Context, res *resolution) error {
	if res.visiting[n.id] {
		return n.fail(domain.ErrResolutionCycle)
	}
	res.visiting[n.id] = true
	defer delete(res.visiting, n.id)
	return n.runSync(ctx, res)
}

// portValue resolves the value a port currently holds.
func (g *Graph) portValue(ctx context.Context, p *Port, res *resolution) (any, error) {
	switch {
	case p.kind == domain.KindControl:
		if p.multi == domain.List {
			return p.parsed()
		}
		return nil, nil
	case p.kind == domain.KindUnknown, p.direction == domain.Output:
		return p.parsed()
	case p.multi == domain.List:
		return g.listValue(ctx, p, res)
	}
	up, ok := g.links.first(p.ref(0))
	if !ok {
		return p.parsed()
	}
	return g.upstreamValue(ctx, up, p.typ, res)
}

func (g *Graph) upstreamValue(ctx context.Context, ref domain.PortRef, want schema.Type, res *resolution) (any, error) {
	src, err := g.lookupPort(ref)
	if err != nil {
		return nil, &domain.PortError{Ref: ref, Err: domain.ErrDanglingConnection}
	}
	if src.autoRun {
		node, _ := g.nodes.Get(src.node)
		if err := node.runAuto(ctx, res); err != nil {
			return nil, err
		}
	}
	v, err := src.parsed()
	if err != nil {
		return nil, err
	}
	out, err := schema.Convert(v, want)
	if err != nil {
		return nil, &domain.PortError{Ref: ref, Err: err}
	}
	return out, nil
}

// listValue starts from the literal list and replaces every connected slot
// with its upstream value.
func (g *Graph) listValue(ctx context.Context, p *Port, res *resolution) (any, error) {
	raw, err := p.parsed()
	if err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(raw)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return raw, nil
	}
	out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(out, rv)
	elem := p.elemType()
	for i := 0; i < out.Len(); i++ {
		up, ok := g.links.first(p.ref(i))
		if !ok {
			continue
		}
		v, err := g.upstreamValue(ctx, up, elem, res)
		if err != nil {
			return nil, err
		}
		if v == nil {
			out.Index(i).Set(reflect.Zero(out.Type().Elem()))
		} else {
			out.Index(i).Set(reflect.ValueOf(v))
		}
	}
	return out.Interface(), nil
}
