package flowgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/flowgraph/internal/logging"
	"github.com/aretw0/flowgraph/internal/validator"
	"github.com/aretw0/flowgraph/pkg/adapters/memory"
	"github.com/aretw0/flowgraph/pkg/builtin"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/graph"
	"github.com/aretw0/flowgraph/pkg/library"
	"github.com/aretw0/flowgraph/pkg/observability"
	"github.com/aretw0/flowgraph/pkg/ports"
	"github.com/aretw0/flowgraph/pkg/registry"
	"github.com/aretw0/flowgraph/pkg/runner"
	"github.com/aretw0/flowgraph/pkg/schema"
	"github.com/jonboulle/clockwork"
)

// Engine is the high-level entry point of the library. It owns the command
// registry, the host that drives walks and the library of stored graphs, and
// creates graphs wired to all of them.
type Engine struct {
	registry *registry.Registry
	library  *library.Library
	host     ports.Host
	store    ports.GraphStore
	locker   ports.DistributedLocker
	metrics  *observability.Metrics

	groups   []registry.Group
	values   schema.Schema
	clock    clockwork.Clock
	interval time.Duration
	hooks    []domain.LifecycleHooks
	logger   *slog.Logger
}

// manualSteps bounds how long a Manual host is stepped while waiting.
const manualSteps = 10000

// ErrReservedGroup is returned by New when a host group reuses the name of a
// built-in group.
var ErrReservedGroup = errors.New("group name is reserved by a built-in group")

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets the structured logger shared by graphs, hosts and stores.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers execution callbacks on every graph the engine
// creates. Repeated options add to each other.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks)
	}
}

// WithMetrics records walks and node runs in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithGroups registers command groups next to the built-in ones.
func WithGroups(groups ...registry.Group) Option {
	return func(e *Engine) {
		e.groups = append(e.groups, groups...)
	}
}

// WithHost replaces the default runner.Loop.
func WithHost(h ports.Host) Option {
	return func(e *Engine) {
		e.host = h
	}
}

// WithClock sets the clock timers and the default host measure against.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithPollInterval sets how often the default host polls suspended walks.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.interval = d
	}
}

// WithStore sets where named graphs are kept. Defaults to memory.
func WithStore(s ports.GraphStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker serializes edits of stored graphs across processes.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithValueSchema declares the types of shared values.
func WithValueSchema(s schema.Schema) Option {
	return func(e *Engine) {
		e.values = s
	}
}

// New creates an Engine. The built-in commands are always registered.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		clock:    clockwork.NewRealClock(),
		interval: runner.DefaultInterval,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	builtins := builtin.Groups()
	for _, g := range e.groups {
		for _, b := range builtins {
			if g.Name == b.Name {
				return nil, fmt.Errorf("failed to register commands: %w: %s", ErrReservedGroup, g.Name)
			}
		}
	}

	e.registry = registry.NewRegistry()
	if err := e.registry.Register(append(builtins, e.groups...)...); err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}
	if e.host == nil {
		e.host = runner.NewLoop(
			runner.WithLogger(e.logger),
			runner.WithClock(e.clock),
			runner.WithInterval(e.interval),
		)
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}

	libOpts := []library.Option{
		library.WithLogger(e.logger),
		library.WithGraphOptions(e.graphOptions()...),
	}
	if e.locker != nil {
		libOpts = append(libOpts, library.WithLocker(e.locker))
	}
	e.library = library.New(e.store, e.registry, libOpts...)
	return e, nil
}

func (e *Engine) graphOptions() []graph.Option {
	hooks := []domain.LifecycleHooks{observability.LogHooks(e.logger)}
	if e.metrics != nil {
		hooks = append(hooks, e.metrics.Hooks())
	}
	hooks = append(hooks, e.hooks...)

	opts := []graph.Option{
		graph.WithHost(e.host),
		graph.WithClock(e.clock),
		graph.WithLogger(e.logger),
		graph.WithLifecycleHooks(domain.MergeHooks(hooks...)),
	}
	if e.values != nil {
		opts = append(opts, graph.WithValueSchema(e.values))
	}
	return opts
}

// Registry returns the command registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Library returns the stored graph manager.
func (e *Engine) Library() *library.Library { return e.library }

// Host returns the scheduler driving walks.
func (e *Engine) Host() ports.Host { return e.host }

// NewGraph creates an empty graph wired to the engine.
func (e *Engine) NewGraph() *graph.Graph {
	return graph.New(e.registry, e.graphOptions()...)
}

// Parse creates a graph from a YAML or JSON document.
func (e *Engine) Parse(data []byte) (*graph.Graph, error) {
	g := e.NewGraph()
	if err := g.Unmarshal(data); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks a document against the registered commands. Warnings are
// logged, errors are returned joined.
func (e *Engine) Validate(doc *domain.GraphDoc) error {
	report := validator.Validate(doc, e.registry)
	for _, w := range report.Warnings() {
		e.logger.Warn("graph warning", "node", w.Node, "msg", w.Message)
	}
	return report.Err()
}

// Run walks g from start and then waits for the walks it spawned. Walks
// spawned by other runs on the same host are not awaited.
func (e *Engine) Run(ctx context.Context, g *graph.Graph, start string) error {
	run := runner.NewTracker()
	ctx = runner.WithTracker(ctx, run)
	if err := g.Run(ctx, start); err != nil {
		return err
	}
	return e.await(ctx, run)
}

func (e *Engine) await(ctx context.Context, run *runner.Tracker) error {
	if m, ok := e.host.(*runner.Manual); ok {
		for i := 0; run.Running() > 0; i++ {
			if i == manualSteps {
				return runner.ErrStalled
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			m.Step(ctx)
		}
	}
	return run.Wait(ctx)
}

// RunStored opens the named graph and runs it from start. The returned graph
// holds the values the walk left behind; it is not saved.
func (e *Engine) RunStored(ctx context.Context, name, start string) (*graph.Graph, error) {
	g, err := e.library.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := e.Run(ctx, g, start); err != nil {
		return g, err
	}
	return g, nil
}

// Graphs lists the stored graph names.
func (e *Engine) Graphs(ctx context.Context) ([]string, error) {
	return e.library.List(ctx)
}

// Wait blocks until every walk spawned on the engine's host finishes or ctx
// ends. Loop hosts wait on their goroutines, Manual hosts step until idle.
func (e *Engine) Wait(ctx context.Context) error {
	switch h := e.host.(type) {
	case *runner.Loop:
		return h.Wait(ctx)
	case *runner.Manual:
		if !h.RunUntilIdle(ctx, manualSteps) {
			return runner.ErrStalled
		}
	}
	return nil
}

// Close stops spawned walks and releases the store.
func (e *Engine) Close() error {
	if l, ok := e.host.(*runner.Loop); ok {
		l.Stop()
	}
	if c, ok := e.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
