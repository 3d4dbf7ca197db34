// Package validator checks graph documents before they are run.
package validator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/graph"
	"github.com/aretw0/flowgraph/pkg/registry"
	"github.com/aretw0/flowgraph/pkg/runner"
)

// Severity ranks an issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Issue is one finding about a node.
type Issue struct {
	Severity Severity
	Node     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Node, i.Message)
}

// Report collects the issues found in a document.
type Report struct {
	Issues []Issue
}

func (r *Report) add(sev Severity, node, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Node: node, Message: fmt.Sprintf(format, args...)})
}

// Errors returns the issues of error severity.
func (r *Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the issues of warning severity.
func (r *Report) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r *Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Err joins the error issues, or returns nil when there are none.
func (r *Report) Err() error {
	var errs []error
	for _, i := range r.Errors() {
		errs = append(errs, errors.New(i.String()))
	}
	return errors.Join(errs...)
}

// Validate checks doc against the commands in reg: unique ids, known
// commands, edges pointing at existing and compatible ports, and nodes that
// no entry point can reach.
func Validate(doc *domain.GraphDoc, reg *registry.Registry) *Report {
	r := &Report{}

	ids := make(map[string]bool, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		switch {
		case nd.ID == "":
			r.add(SeverityError, "?", "node with command %q has no id", nd.Command)
		case ids[nd.ID]:
			r.add(SeverityError, nd.ID, "duplicate node id")
		}
		ids[nd.ID] = true
		if _, err := reg.Lookup(nd.Command); err != nil {
			r.add(SeverityError, nd.ID, "unknown command %q", nd.Command)
		}
	}
	for _, nd := range doc.Nodes {
		for _, pd := range nd.Ports {
			for _, c := range pd.Connections {
				if !ids[c.To.Node] {
					r.add(SeverityError, nd.ID, "port %s connects to missing node %q", pd.Name, c.To.Node)
				}
			}
		}
	}
	if len(r.Errors()) > 0 {
		return r
	}

	g := graph.New(reg, graph.WithHost(runner.NewManual(0)))
	if err := g.Load(doc); err != nil {
		r.add(SeverityError, "?", "load: %v", err)
		return r
	}
	checkEdges(r, doc, g)
	checkReachable(r, g)
	return r
}

func checkEdges(r *Report, doc *domain.GraphDoc, g *graph.Graph) {
	for _, nd := range doc.Nodes {
		n, _ := g.Node(nd.ID)
		for _, pd := range nd.Ports {
			p, ok := n.Port(pd.Name)
			if !ok {
				if len(pd.Connections) > 0 {
					r.add(SeverityWarning, nd.ID, "port %s no longer exists, its edges are dropped", pd.Name)
				}
				continue
			}
			for _, c := range pd.Connections {
				peer, _ := g.Node(c.To.Node)
				q, ok := peer.Port(c.To.Port)
				if !ok {
					r.add(SeverityWarning, nd.ID, "edge %s -> %s dropped, target port is missing", pd.Name, c.To)
					continue
				}
				// Each edge is listed on both ends; report it from the output side.
				if p.Direction() == domain.Output && !p.CanConnect(q) {
					r.add(SeverityError, nd.ID, "edge %s -> %s joins incompatible ports", pd.Name, c.To)
				}
			}
		}
	}
}

// checkReachable walks control edges from entry points, then pulls in the
// producers feeding the data inputs of every reached node.
func checkReachable(r *Report, g *graph.Graph) {
	reached := make(map[string]bool)
	var queue []string
	for _, n := range g.Nodes() {
		if _, hasFrom := n.Port(domain.PortFrom); !hasFrom && hasControlOut(n) {
			queue = append(queue, n.ID())
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reached[id] {
			continue
		}
		reached[id] = true
		n, _ := g.Node(id)
		for _, p := range n.Ports() {
			follow := (p.Kind() == domain.KindControl && p.Direction() == domain.Output) ||
				(p.Kind() == domain.KindData && p.Direction() == domain.Input)
			if !follow {
				continue
			}
			for i := 0; i < max(p.Slots(), 1); i++ {
				for _, to := range p.Connections(i) {
					if !reached[to.Node] {
						queue = append(queue, to.Node)
					}
				}
			}
		}
	}

	var unreached []string
	for _, n := range g.Nodes() {
		if !reached[n.ID()] {
			unreached = append(unreached, n.ID())
		}
	}
	sort.Strings(unreached)
	for _, id := range unreached {
		r.add(SeverityWarning, id, "unreachable from any entry point")
	}
}

func hasControlOut(n *graph.Node) bool {
	for _, p := range n.Ports() {
		if p.Kind() == domain.KindControl && p.Direction() == domain.Output {
			return true
		}
	}
	return false
}
