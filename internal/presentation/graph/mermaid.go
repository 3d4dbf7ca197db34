// Package graph renders node graphs for people: Mermaid flowcharts and
// markdown summaries.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowgraph/pkg/domain"
	fg "github.com/aretw0/flowgraph/pkg/graph"
)

// Overlay contains execution state to highlight on the chart.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of g.
// Node shapes:
// - entry points (no From input): ((Circle))
// - auto-run producers (no control ports): [/Parallelogram/]
// - inert nodes (unknown command): {{Hexagon}}
// - default: [Rectangle]
// Control edges are solid and labelled with the output port unless it is
// Next. Data edges are dotted and labelled "out -> in".
func GenerateMermaid(g *fg.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	nodes := g.Nodes()
	for _, n := range nodes {
		safeID := sanitizeMermaidID(n.ID())
		_, hasFrom := n.Port(domain.PortFrom)
		_, hasNext := n.Port(domain.PortNext)

		opener, closer := "[", "]"
		switch {
		case n.Inert():
			opener, closer = "{{", "}}"
		case !hasFrom && hasNext:
			opener, closer = "((", "))"
		case !hasFrom && !hasNext && !hasControl(n):
			opener, closer = "[/", "/]"
		}
		label := n.Name()
		if label == "" {
			label = n.Command()
		}
		if label != n.ID() {
			label = fmt.Sprintf("%s <br/> %s", label, shortID(n.ID()))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escape(label), closer)
	}

	for _, n := range nodes {
		safeID := sanitizeMermaidID(n.ID())
		for _, p := range n.Ports() {
			if p.Direction() != domain.Output {
				continue
			}
			for i := 0; i < max(p.Slots(), 1); i++ {
				for _, to := range p.Connections(i) {
					safeTo := sanitizeMermaidID(to.Node)
					from := p.Name()
					if p.Multiplicity() == domain.List {
						from = fmt.Sprintf("%s[%d]", from, i)
					}
					switch {
					case p.Kind() == domain.KindData:
						fmt.Fprintf(&sb, "    %s -. \"%s -> %s\" .-> %s\n", safeID, escape(from), escape(to.Port), safeTo)
					case from == domain.PortNext && to.Port == domain.PortFrom:
						fmt.Fprintf(&sb, "    %s --> %s\n", safeID, safeTo)
					default:
						fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, escape(from), safeTo)
					}
				}
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func hasControl(n *fg.Node) bool {
	for _, p := range n.Ports() {
		if p.Kind() == domain.KindControl {
			return true
		}
	}
	return false
}

// shortID trims generated ids to their first group.
func shortID(id string) string {
	if len(id) == 36 && strings.Count(id, "-") == 4 {
		return id[:8]
	}
	return id
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
