package graph

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/schema"
)

// Port is a typed connection point on a node. Ports refer to their node by id
// and resolve everything else through the graph.
type Port struct {
	g         *Graph
	node      string
	name      string
	direction domain.Direction
	kind      domain.PortKind
	typ       schema.Type
	multi     domain.Multiplicity
	single    bool
	autoRun   bool
	keyName   bool
	param     int

	literal string
	value   any
	cached  bool
}

func controlPort(g *Graph, node, name string, dir domain.Direction) *Port {
	return &Port{
		g:         g,
		node:      node,
		name:      name,
		direction: dir,
		kind:      domain.KindControl,
		typ:       schema.Control(),
		single:    dir == domain.Output,
		param:     -1,
	}
}

func (p *Port) lock() func() {
	if p.g == nil {
		return func() {}
	}
	p.g.mu.Lock()
	return p.g.mu.Unlock
}

// Name returns the port name.
func (p *Port) Name() string { return p.name }

// Node returns the id of the owning node.
func (p *Port) Node() string {
	defer p.lock()()
	return p.node
}

// Direction returns whether the port is an input or an output.
func (p *Port) Direction() domain.Direction { return p.direction }

// Kind returns whether the port carries control or data.
func (p *Port) Kind() domain.PortKind { return p.kind }

// Type returns the declared type. List ports report the slice type.
func (p *Port) Type() schema.Type { return p.typ }

// Multiplicity returns whether the port has one slot or a list of slots.
func (p *Port) Multiplicity() domain.Multiplicity { return p.multi }

// AutoRun reports whether reading this output runs its node on demand.
func (p *Port) AutoRun() bool { return p.autoRun }

// Literal returns the stored text form of the port value.
func (p *Port) Literal() string {
	defer p.lock()()
	return p.literal
}

// SetLiteral replaces the stored text after checking that it parses.
func (p *Port) SetLiteral(text string) error {
	defer p.lock()()
	if p.kind == domain.KindUnknown {
		p.literal = text
		return nil
	}
	v, err := p.g.codec.Parse(text, p.typ)
	if err != nil {
		return &domain.PortError{Ref: p.ref(0), Err: err}
	}
	return p.store(v, text)
}

// Ref returns the address of one slot of this port.
func (p *Port) Ref(index int) domain.PortRef {
	defer p.lock()()
	return p.ref(index)
}

// Slots returns the number of slots. Single ports have one.
func (p *Port) Slots() int {
	defer p.lock()()
	return p.slots()
}

// Connections lists the peers of one slot in connection order.
func (p *Port) Connections(index int) []domain.PortRef {
	defer p.lock()()
	if p.g == nil {
		return nil
	}
	return p.g.links.of(p.ref(index))
}

// IsConnected reports whether any slot has an edge.
func (p *Port) IsConnected() bool {
	defer p.lock()()
	if p.g == nil {
		return false
	}
	return len(p.g.links.slotsOf(p.node, p.name)) > 0
}

// Value resolves the current value, pulling from upstream ports and running
// auto-run nodes as needed.
func (p *Port) Value(ctx context.Context) (any, error) {
	defer p.lock()()
	return p.g.portValue(ctx, p, newResolution())
}

// SetValue converts v to the port type, formats it as the new literal and
// caches it. Writing a key-name port renames the node.
func (p *Port) SetValue(v any) error {
	defer p.lock()()
	return p.setValue(v)
}

// Connect links slot index of this port to target. Incompatible or missing
// ports leave the graph untouched.
func (p *Port) Connect(target domain.PortRef, index int) error {
	defer p.lock()()
	return p.g.connect(p.ref(index), target)
}

// Disconnect removes the edge between slot index of this port and target.
func (p *Port) Disconnect(target domain.PortRef, index int) {
	defer p.lock()()
	p.g.links.remove(p.ref(index), target)
}

// ClearConnections removes every edge of every slot.
func (p *Port) ClearConnections() {
	defer p.lock()()
	p.g.links.clearPort(p.node, p.name)
}

// InsertSlot inserts v as element i of a list port. Edges of the slots at
// and after i move up with their elements.
func (p *Port) InsertSlot(i int, v any) error {
	defer p.lock()()
	items, err := p.listItems()
	if err != nil {
		return err
	}
	if i < 0 || i > items.Len() {
		return &domain.PortError{Ref: p.ref(i), Err: domain.ErrMissingPort}
	}
	elem, err := p.listElem(items.Type().Elem(), v)
	if err != nil {
		return err
	}
	next := reflect.MakeSlice(items.Type(), 0, items.Len()+1)
	next = reflect.AppendSlice(next, items.Slice(0, i))
	next = reflect.Append(next, elem)
	next = reflect.AppendSlice(next, items.Slice(i, items.Len()))
	p.g.links.shift(p.node, p.name, i, 1)
	return p.setList(next)
}

// RemoveSlot removes element i of a list port with the edges of its slot.
// Edges of later slots move down with their elements.
func (p *Port) RemoveSlot(i int) error {
	defer p.lock()()
	items, err := p.listItems()
	if err != nil {
		return err
	}
	if i < 0 || i >= items.Len() {
		return &domain.PortError{Ref: p.ref(i), Err: domain.ErrMissingPort}
	}
	next := reflect.MakeSlice(items.Type(), 0, items.Len()-1)
	next = reflect.AppendSlice(next, items.Slice(0, i))
	next = reflect.AppendSlice(next, items.Slice(i+1, items.Len()))
	p.g.links.shift(p.node, p.name, i, -1)
	return p.setList(next)
}

func (p *Port) listItems() (reflect.Value, error) {
	if p.multi != domain.List || p.g == nil {
		return reflect.Value{}, &domain.PortError{Ref: p.ref(0), Err: domain.ErrIncompatiblePorts}
	}
	v, err := p.parsed()
	if err != nil {
		return reflect.Value{}, err
	}
	rv := reflect.ValueOf(v)
	if v == nil || rv.Kind() != reflect.Slice {
		st := p.typ.GoType()
		if st.Kind() != reflect.Slice {
			st = reflect.TypeOf([]any(nil))
		}
		rv = reflect.MakeSlice(st, 0, 0)
	}
	return rv, nil
}

func (p *Port) listElem(rt reflect.Type, v any) (reflect.Value, error) {
	if p.kind == domain.KindControl {
		return reflect.ValueOf(fmt.Sprint(v)).Convert(rt), nil
	}
	cv, err := schema.Convert(v, p.elemType())
	if err != nil {
		return reflect.Value{}, &domain.PortError{Ref: p.ref(0), Err: err}
	}
	out := reflect.New(rt).Elem()
	if cv != nil {
		out.Set(reflect.ValueOf(cv))
	}
	return out, nil
}

func (p *Port) setList(items reflect.Value) error {
	v := items.Interface()
	text, err := p.g.codec.Format(v, p.typ)
	if err != nil {
		return &domain.PortError{Ref: p.ref(0), Err: err}
	}
	return p.store(v, text)
}

// CanConnect reports whether an edge between p and other would be accepted.
func (p *Port) CanConnect(other *Port) bool {
	return p.canConnect(other)
}

func (p *Port) ref(index int) domain.PortRef {
	return domain.PortRef{Node: p.node, Port: p.name, Index: index}
}

// elemType is the type a single slot carries.
func (p *Port) elemType() schema.Type {
	if p.multi == domain.List && p.kind == domain.KindData {
		if st, ok := p.typ.(*schema.SliceType); ok {
			return st.Elem()
		}
	}
	return p.typ
}

func (p *Port) canConnect(q *Port) bool {
	if p == nil || q == nil || p == q {
		return false
	}
	if p.kind == domain.KindUnknown || q.kind == domain.KindUnknown {
		return false
	}
	if p.direction == q.direction || p.kind != q.kind {
		return false
	}
	if p.kind == domain.KindControl {
		return true
	}
	out, in := p, q
	if p.direction == domain.Input {
		out, in = q, p
	}
	return schema.CanConnect(out.elemType(), in.elemType())
}

func (p *Port) parsed() (any, error) {
	if p.cached {
		return p.value, nil
	}
	if p.kind == domain.KindUnknown {
		return nil, nil
	}
	v, err := p.g.codec.Parse(p.literal, p.typ)
	if err != nil {
		return nil, &domain.PortError{Ref: p.ref(0), Err: err}
	}
	p.value = v
	p.cached = true
	return v, nil
}

func (p *Port) slots() int {
	if p.multi != domain.List {
		return 1
	}
	v, err := p.parsed()
	if err != nil || v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return 0
	}
	return rv.Len()
}

func (p *Port) setValue(v any) error {
	if p.kind == domain.KindUnknown {
		return &domain.PortError{Ref: p.ref(0), Err: domain.ErrUnknownCommand}
	}
	if p.kind == domain.KindControl && p.multi == domain.Single {
		return nil
	}
	cv, err := schema.Convert(v, p.typ)
	if err != nil {
		return &domain.PortError{Ref: p.ref(0), Err: err}
	}
	text, err := p.g.codec.Format(cv, p.typ)
	if err != nil {
		return &domain.PortError{Ref: p.ref(0), Err: err}
	}
	return p.store(cv, text)
}

func (p *Port) store(v any, text string) error {
	if p.keyName {
		if err := p.g.renameNode(p.node, fmt.Sprint(v)); err != nil {
			return err
		}
	}
	p.literal = text
	p.value = v
	p.cached = true
	if p.multi == domain.List {
		p.g.links.clearFrom(p.node, p.name, p.slots())
	}
	return nil
}
