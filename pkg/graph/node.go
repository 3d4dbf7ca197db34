package graph

import (
	"context"
	"fmt"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/registry"
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Node is one command placed in a graph.
type Node struct {
	g       *Graph
	id      string
	name    string
	command string
	rect    domain.Rect
	cmd     *registry.Command
	ports   *orderedmap.OrderedMap[string, *Port]

	// exec backs the direct RunStep API. Traversals keep their own.
	exec  execution
	state domain.ExecState
}

// NewNode creates a detached node for a command. It gets its ports and id
// when added to a graph.
func NewNode(command string) *Node {
	return &Node{
		command: command,
		ports:   orderedmap.New[string, *Port](),
		state:   domain.StateNotStarted,
	}
}

func (n *Node) lock() func() {
	if n.g == nil {
		return func() {}
	}
	n.g.mu.Lock()
	return n.g.mu.Unlock
}

// ID returns the node id.
func (n *Node) ID() string {
	defer n.lock()()
	return n.id
}

// Name returns the display name. It defaults to the command name.
func (n *Node) Name() string {
	defer n.lock()()
	return n.name
}

// SetName changes the display name.
func (n *Node) SetName(name string) {
	defer n.lock()()
	n.name = name
}

// Command returns the command name the node was created with.
func (n *Node) Command() string { return n.command }

// Info returns the resolved command, or nil when the node is inert.
func (n *Node) Info() *registry.Command {
	defer n.lock()()
	return n.cmd
}

// Inert reports whether the node's command could not be resolved.
func (n *Node) Inert() bool {
	defer n.lock()()
	return n.cmd == nil
}

// Rect returns the editor layout.
func (n *Node) Rect() domain.Rect {
	defer n.lock()()
	return n.rect
}

// SetRect changes the editor layout.
func (n *Node) SetRect(r domain.Rect) {
	defer n.lock()()
	n.rect = r
}

// State returns the execution state of the most recent step.
func (n *Node) State() domain.ExecState {
	defer n.lock()()
	return n.state
}

// Port returns a port by name.
func (n *Node) Port(name string) (*Port, bool) {
	defer n.lock()()
	return n.ports.Get(name)
}

// Ports lists the ports in declaration order.
func (n *Node) Ports() []*Port {
	defer n.lock()()
	out := make([]*Port, 0, n.ports.Len())
	for pair := n.ports.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Value resolves the value of one of the node's ports. Nodes removed from
// their graph report ErrNodeNotFound.
func (n *Node) Value(ctx context.Context, port string) (any, error) {
	defer n.lock()()
	if n.g == nil {
		return nil, n.detached(port)
	}
	p, err := n.port(port)
	if err != nil {
		return nil, err
	}
	return n.g.portValue(ctx, p, newResolution())
}

// SetValue writes one of the node's ports.
func (n *Node) SetValue(port string, v any) error {
	defer n.lock()()
	if n.g == nil {
		return n.detached(port)
	}
	p, err := n.port(port)
	if err != nil {
		return err
	}
	return p.setValue(v)
}

// ConnectNext links this node's Next output to target's From input.
func (n *Node) ConnectNext(target *Node) error {
	defer n.lock()()
	if n.g == nil || target.g != n.g {
		return &domain.PortError{Ref: domain.PortRef{Node: n.id, Port: domain.PortNext}, Err: domain.ErrNodeNotFound}
	}
	return n.g.connect(
		domain.PortRef{Node: n.id, Port: domain.PortNext},
		domain.PortRef{Node: target.id, Port: domain.PortFrom},
	)
}

// ClearConnections removes every edge touching the node.
func (n *Node) ClearConnections() {
	defer n.lock()()
	if n.g != nil {
		n.g.links.clearNode(n.id)
	}
}

func (n *Node) detached(port string) error {
	return &domain.PortError{Ref: domain.PortRef{Node: n.id, Port: port}, Err: domain.ErrNodeNotFound}
}

func (n *Node) port(name string) (*Port, error) {
	p, ok := n.ports.Get(name)
	if !ok {
		return nil, &domain.PortError{Ref: domain.PortRef{Node: n.id, Port: name}, Err: domain.ErrMissingPort}
	}
	return p, nil
}

func (n *Node) keyPort() *Port {
	for pair := n.ports.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.keyName {
			return pair.Value
		}
	}
	return nil
}

// bind resolves the command and rebuilds the ports from its signature.
// Literals of ports that survive are kept. Unknown commands leave the node
// inert with whatever ports it already had.
func (g *Graph) bind(n *Node) {
	n.g = g
	stale := n.ports
	cmd, err := g.registry.Lookup(n.command)
	if err != nil {
		n.cmd = nil
		for pair := stale.Oldest(); pair != nil; pair = pair.Next() {
			p := pair.Value
			p.g, p.node, p.kind, p.param = g, n.id, domain.KindUnknown, -1
		}
		g.logger.Warn("unknown command, node is inert", "node", n.id, "command", n.command)
		return
	}

	n.cmd = cmd
	if n.name == "" {
		n.name = cmd.Name
	}

	fresh := orderedmap.New[string, *Port]()
	add := func(p *Port) {
		if old, ok := stale.Get(p.name); ok {
			p.literal = old.literal
		}
		fresh.Set(p.name, p)
	}

	if !cmd.Start {
		add(controlPort(g, n.id, domain.PortFrom, domain.Input))
	}
	add(controlPort(g, n.id, domain.PortNext, domain.Output))

	for i, prm := range cmd.Params {
		if prm.Self {
			continue
		}
		p := &Port{
			g:       g,
			node:    n.id,
			name:    prm.Name,
			typ:     prm.Type,
			autoRun: prm.AutoRun,
			keyName: prm.KeyName,
			param:   i,
		}
		if prm.Output {
			p.direction = domain.Output
		}
		if prm.Control {
			p.kind = domain.KindControl
		}
		if prm.List {
			p.multi = domain.List
		}
		// Data inputs and control outputs accept one edge per slot.
		p.single = (p.kind == domain.KindData) == (p.direction == domain.Input)
		add(p)
		if p.literal == "" && prm.HasDefault {
			p.literal = prm.Default
		}
		if prm.Output {
			if prm.AutoRun {
				fresh.Delete(domain.PortFrom)
				fresh.Delete(domain.PortNext)
			} else if prm.Control {
				fresh.Delete(domain.PortNext)
			}
		}
	}

	if cmd.Returns.HasResult() {
		add(&Port{
			g:         g,
			node:      n.id,
			name:      domain.PortResult,
			direction: domain.Output,
			kind:      domain.KindData,
			typ:       cmd.ResultType,
			param:     -1,
		})
	}

	for _, name := range append(portNames(stale), domain.PortFrom, domain.PortNext) {
		if _, ok := fresh.Get(name); !ok {
			g.links.clearPort(n.id, name)
		}
	}
	n.ports = fresh

	for pair := fresh.Oldest(); pair != nil; pair = pair.Next() {
		if p := pair.Value; p.multi == domain.List {
			g.links.clearFrom(n.id, p.name, p.slots())
		}
	}
}

// assignID picks the id of a freshly added node: the key-name value, the
// command name for start commands, or a random id.
func (g *Graph) assignID(n *Node) (string, error) {
	if p := n.keyPort(); p != nil && p.literal != "" {
		v, err := p.parsed()
		if err != nil {
			return "", err
		}
		if id := fmt.Sprint(v); id != "" {
			return id, nil
		}
	}
	if n.cmd != nil && n.cmd.Start {
		return n.cmd.Name, nil
	}
	return uuid.NewString(), nil
}

func (n *Node) setID(id string) {
	n.id = id
	for pair := n.ports.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.node = id
	}
}

func portNames(m *orderedmap.OrderedMap[string, *Port]) []string {
	out := make([]string, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}
