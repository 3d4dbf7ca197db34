package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/flowgraph/internal/logging"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/ports"
	"github.com/aretw0/flowgraph/pkg/registry"
	"github.com/aretw0/flowgraph/pkg/runner"
	"github.com/aretw0/flowgraph/pkg/schema"
	"github.com/jonboulle/clockwork"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Graph owns nodes, their ports and the edges between them.
//
// A single lock guards the structure. Walks take it for one step at a time,
// so structural edits and walks interleave between steps.
type Graph struct {
	mu       sync.Mutex
	registry *registry.Registry
	codec    ports.Codec
	host     ports.Host
	clock    clockwork.Clock
	logger   *slog.Logger
	hooks    domain.LifecycleHooks

	nodes  *orderedmap.OrderedMap[string, *Node]
	links  *links
	values *Values
}

// Option configures a Graph.
type Option func(*Graph)

// WithHost sets the scheduler that drives walks. Defaults to a runner.Loop.
func WithHost(h ports.Host) Option {
	return func(g *Graph) { g.host = h }
}

// WithClock sets the clock timers are measured against.
func WithClock(c clockwork.Clock) Option {
	return func(g *Graph) { g.clock = c }
}

// WithLogger sets the graph logger. Commands get it through their node handle.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

// WithLifecycleHooks registers execution callbacks.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(g *Graph) { g.hooks = h }
}

// WithValueSchema declares types for shared values.
func WithValueSchema(s schema.Schema) Option {
	return func(g *Graph) { g.values = NewValues(s) }
}

// New creates an empty graph resolving commands through reg.
func New(reg *registry.Registry, opts ...Option) *Graph {
	g := &Graph{
		registry: reg,
		codec:    reg.Codec(),
		clock:    clockwork.NewRealClock(),
		logger:   logging.NewNop(),
		nodes:    orderedmap.New[string, *Node](),
		links:    newLinks(),
		values:   NewValues(nil),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.host == nil {
		g.host = runner.NewLoop(runner.WithLogger(g.logger), runner.WithClock(g.clock))
	}
	return g
}

// Registry returns the command registry.
func (g *Graph) Registry() *registry.Registry { return g.registry }

// Values returns the shared values.
func (g *Graph) Values() *Values { return g.values }

// Host returns the scheduler driving walks.
func (g *Graph) Host() ports.Host { return g.host }

// Node returns a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes.Get(id)
}

// Nodes lists the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Node, 0, g.nodes.Len())
	for pair := g.nodes.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes.Len()
}

// Add binds a detached node and inserts it. Unknown commands are accepted and
// leave the node inert.
func (g *Graph) Add(n *Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.add(n)
}

// AddCommand creates a node for command at the given position.
func (g *Graph) AddCommand(command string, at domain.Point) (*Node, error) {
	n := NewNode(command)
	n.rect = domain.Rect{X: at.X, Y: at.Y}
	if err := g.Add(n); err != nil {
		return nil, err
	}
	return n, nil
}

// AddConnected creates a node for command and links its first compatible
// port to from.
func (g *Graph) AddConnected(from domain.PortRef, command string, at domain.Point) (*Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	src, err := g.lookupPort(from)
	if err != nil {
		return nil, err
	}
	n := NewNode(command)
	n.rect = domain.Rect{X: at.X, Y: at.Y}
	if err := g.add(n); err != nil {
		return nil, err
	}
	for pair := n.ports.Oldest(); pair != nil; pair = pair.Next() {
		if src.canConnect(pair.Value) {
			if err := g.connect(from, pair.Value.ref(0)); err != nil {
				g.remove(n.id)
				return nil, err
			}
			return n, nil
		}
	}
	g.remove(n.id)
	return nil, &domain.ConnectError{
		From:   from,
		To:     domain.PortRef{Node: command},
		Reason: "no compatible port",
		Err:    domain.ErrIncompatiblePorts,
	}
}

func (g *Graph) add(n *Node) error {
	if n.g != nil {
		return fmt.Errorf("%w: node %q already belongs to a graph", domain.ErrDuplicateNode, n.id)
	}
	g.bind(n)
	if n.id == "" {
		id, err := g.assignID(n)
		if err != nil {
			n.g = nil
			return err
		}
		n.setID(id)
	}
	if _, exists := g.nodes.Get(n.id); exists {
		n.g = nil
		return fmt.Errorf("%w: %s", domain.ErrDuplicateNode, n.id)
	}
	g.nodes.Set(n.id, n)
	g.logger.Debug("node added", "node", n.id, "command", n.command)
	return nil
}

// Remove deletes a node and every edge touching it.
func (g *Graph) Remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remove(id)
}

func (g *Graph) remove(id string) bool {
	n, ok := g.nodes.Get(id)
	if !ok {
		return false
	}
	g.links.clearNode(id)
	g.nodes.Delete(id)
	n.g = nil
	g.logger.Debug("node removed", "node", id)
	return true
}

// Connect links two port slots.
func (g *Graph) Connect(a, b domain.PortRef) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connect(a, b)
}

// Disconnect removes the edge between two port slots.
func (g *Graph) Disconnect(a, b domain.PortRef) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.links.remove(a, b)
}

// Connected reports whether an edge links the two slots.
func (g *Graph) Connected(a, b domain.PortRef) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.links.has(a, b)
}

func (g *Graph) connect(a, b domain.PortRef) error {
	pa, err := g.lookupPort(a)
	if err != nil {
		return err
	}
	pb, err := g.lookupPort(b)
	if err != nil {
		return err
	}
	if !pa.canConnect(pb) {
		return &domain.ConnectError{
			From:   a,
			To:     b,
			Reason: fmt.Sprintf("%s %s %s -> %s %s %s", pa.direction, pa.kind, typeName(pa), pb.direction, pb.kind, typeName(pb)),
			Err:    domain.ErrIncompatiblePorts,
		}
	}
	if a.Index < 0 || a.Index >= pa.slots() {
		return &domain.PortError{Ref: a, Err: domain.ErrMissingPort}
	}
	if b.Index < 0 || b.Index >= pb.slots() {
		return &domain.PortError{Ref: b, Err: domain.ErrMissingPort}
	}
	if pa.single {
		g.links.clear(a)
	}
	if pb.single {
		g.links.clear(b)
	}
	g.links.add(a, b)
	g.logger.Debug("ports connected", "from", a.String(), "to", b.String())
	return nil
}

func (g *Graph) lookupPort(ref domain.PortRef) (*Port, error) {
	n, ok := g.nodes.Get(ref.Node)
	if !ok {
		return nil, &domain.PortError{Ref: ref, Err: domain.ErrNodeNotFound}
	}
	p, ok := n.ports.Get(ref.Port)
	if !ok {
		return nil, &domain.PortError{Ref: ref, Err: domain.ErrMissingPort}
	}
	return p, nil
}

// renameNode moves a node to a new id, keeping its edges and its position in
// the node order.
func (g *Graph) renameNode(from, to string) error {
	if to == "" || to == from {
		return nil
	}
	n, ok := g.nodes.Get(from)
	if !ok {
		// Not inserted yet; add assigns the id.
		return nil
	}
	if _, taken := g.nodes.Get(to); taken {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateNode, to)
	}
	reordered := orderedmap.New[string, *Node]()
	for pair := g.nodes.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == from {
			reordered.Set(to, n)
			continue
		}
		reordered.Set(pair.Key, pair.Value)
	}
	g.nodes = reordered
	g.links.rename(from, to)
	n.setID(to)
	g.logger.Debug("node renamed", "from", from, "to", to)
	return nil
}

// Start creates a walk beginning at node id. The caller drives it with Poll
// or hands it to a host.
func (g *Graph) Start(ctx context.Context, id string) (*Traversal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes.Get(id); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	return g.newTraversal(id), nil
}

// Run walks the graph from node id until the walk ends. Walks it spawns on
// the way keep running on the host.
func (g *Graph) Run(ctx context.Context, id string) error {
	t, err := g.Start(ctx, id)
	if err != nil {
		return err
	}
	return g.host.Drive(ctx, t)
}

// RunPort spawns a walk at whatever the given control output of node id
// connects to.
func (g *Graph) RunPort(ctx context.Context, id, port string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	return g.runPort(ctx, n, port)
}

func (g *Graph) runPort(ctx context.Context, n *Node, port string) error {
	p, err := n.port(port)
	if err != nil {
		return err
	}
	if p.kind != domain.KindControl || p.direction != domain.Output {
		return &domain.PortError{Ref: p.ref(0), Err: domain.ErrIncompatiblePorts}
	}
	dest, ok := g.links.first(p.ref(0))
	if !ok {
		return nil
	}
	g.host.Spawn(ctx, g.newTraversal(dest.Node))
	return nil
}

func typeName(p *Port) string {
	if p.typ == nil {
		return "?"
	}
	return p.typ.Name()
}
