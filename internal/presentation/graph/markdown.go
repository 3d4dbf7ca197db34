package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowgraph/pkg/domain"
	fg "github.com/aretw0/flowgraph/pkg/graph"
)

// Markdown summarizes g: one section per node listing its ports, literals and
// connections, followed by the shared values.
func Markdown(title string, g *fg.Graph) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "%d nodes\n\n", g.Len())

	for _, n := range g.Nodes() {
		fmt.Fprintf(&sb, "## %s\n\n", n.ID())
		fmt.Fprintf(&sb, "`%s`", n.Command())
		if info := n.Info(); info != nil && info.Description != "" {
			fmt.Fprintf(&sb, " %s", info.Description)
		}
		if n.Inert() {
			sb.WriteString(" **(unknown command)**")
		}
		sb.WriteString("\n\n")

		sb.WriteString("| Port | Dir | Type | Literal | Connections |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, p := range n.Ports() {
			typ := "?"
			if p.Type() != nil {
				typ = p.Type().Name()
			}
			var conns []string
			for i := 0; i < max(p.Slots(), 1); i++ {
				for _, to := range p.Connections(i) {
					conns = append(conns, to.String())
				}
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
				p.Name(), direction(p.Direction()), typ, cell(p.Literal()), cell(strings.Join(conns, ", ")))
		}
		sb.WriteString("\n")
	}

	if keys := g.Values().Keys(); len(keys) > 0 {
		sb.WriteString("## Values\n\n")
		for _, k := range keys {
			v, _ := g.Values().Get(k)
			fmt.Fprintf(&sb, "- `%s`: %v\n", k, v)
		}
	}
	return sb.String()
}

func direction(d domain.Direction) string {
	if d == domain.Output {
		return "out"
	}
	return "in"
}

func cell(s string) string {
	if s == "" {
		return " "
	}
	return "`" + strings.ReplaceAll(s, "|", "\\|") + "`"
}
