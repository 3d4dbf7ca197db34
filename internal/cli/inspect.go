package cli

import (
	"context"
	"sync"

	"github.com/aretw0/flowgraph/internal/presentation/graph"
	"github.com/aretw0/flowgraph/internal/validator"
	"github.com/aretw0/flowgraph/pkg/domain"
)

// Tracer records the nodes walks enter, in order and without repeats.
type Tracer struct {
	mu      sync.Mutex
	visited []string
	seen    map[string]bool
	last    string
}

// NewTracer creates an empty Tracer.
func NewTracer() *Tracer {
	return &Tracer{seen: make(map[string]bool)}
}

// Hooks returns the callbacks feeding the tracer.
func (t *Tracer) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.last = e.NodeID
			if !t.seen[e.NodeID] {
				t.seen[e.NodeID] = true
				t.visited = append(t.visited, e.NodeID)
			}
		},
	}
}

// Overlay returns the chart highlight for what was recorded so far.
func (t *Tracer) Overlay() *graph.Overlay {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &graph.Overlay{
		VisitedNodes: append([]string(nil), t.visited...),
		CurrentNode:  t.last,
	}
}

// Diagram renders target as a Mermaid chart. With a tracer and a start node
// the graph is run first and the walked nodes are highlighted.
func Diagram(ctx context.Context, rt *Runtime, target, start string, tracer *Tracer) (string, error) {
	g, _, err := LoadGraph(ctx, rt.Engine, target)
	if err != nil {
		return "", err
	}
	if tracer == nil || start == "" {
		return graph.GenerateMermaid(g, nil), nil
	}
	if err := handleExecutionError(rt.Engine.Run(ctx, g, start)); err != nil {
		rt.Logger.Warn("traced run failed", "start", start, "err", err)
	}
	return graph.GenerateMermaid(g, tracer.Overlay()), nil
}

// Inspect renders target as a markdown summary of its nodes, ports and values.
func Inspect(ctx context.Context, rt *Runtime, target string) (string, error) {
	g, name, err := LoadGraph(ctx, rt.Engine, target)
	if err != nil {
		return "", err
	}
	return graph.Markdown(name, g), nil
}

// Validate checks target against the registered commands.
func Validate(ctx context.Context, rt *Runtime, target string) (*validator.Report, error) {
	doc, err := ReadDoc(ctx, rt.Engine, target)
	if err != nil {
		return nil, err
	}
	return validator.Validate(doc, rt.Engine.Registry()), nil
}
