package graph

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Doc returns the serialized form of the graph.
func (g *Graph) Doc() *domain.GraphDoc {
	g.mu.Lock()
	defer g.mu.Unlock()
	doc := &domain.GraphDoc{}
	for pair := g.nodes.Oldest(); pair != nil; pair = pair.Next() {
		doc.Nodes = append(doc.Nodes, g.nodeDoc(pair.Value))
	}
	if keys := g.values.Keys(); len(keys) > 0 {
		doc.Values = g.values.Snapshot()
	}
	return doc
}

func (g *Graph) nodeDoc(n *Node) domain.NodeDoc {
	nd := domain.NodeDoc{
		ID:      n.id,
		Name:    n.name,
		Command: n.command,
		Rect:    n.rect,
	}
	if n.cmd != nil {
		nd.Command = n.cmd.Key
	}
	for pair := n.ports.Oldest(); pair != nil; pair = pair.Next() {
		p := pair.Value
		pd := domain.PortDoc{Name: p.name, Literal: p.literal}
		for _, slot := range g.links.slotsOf(n.id, p.name) {
			for _, to := range g.links.of(slot) {
				pd.Connections = append(pd.Connections, domain.Connection{Index: slot.Index, To: to})
			}
		}
		nd.Ports = append(nd.Ports, pd)
	}
	return nd
}

// Load replaces the graph content with doc. When doc is rejected the graph
// keeps its previous nodes, edges and values.
func (g *Graph) Load(doc *domain.GraphDoc) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.values.check(doc.Values); err != nil {
		return err
	}

	oldNodes, oldLinks := g.nodes, g.links
	g.nodes = orderedmap.New[string, *Node]()
	g.links = newLinks()
	if _, err := g.insert(doc.Nodes); err != nil {
		g.nodes, g.links = oldNodes, oldLinks
		return err
	}
	for pair := oldNodes.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.g = nil
	}
	return g.values.Replace(doc.Values)
}

// insert adds nodes from documents, then their edges. Either everything is
// inserted or nothing is.
func (g *Graph) insert(docs []domain.NodeDoc) ([]*Node, error) {
	added := make([]*Node, 0, len(docs))
	rollback := func() {
		for _, n := range added {
			g.remove(n.id)
		}
	}

	for _, nd := range docs {
		if nd.ID == "" {
			rollback()
			return nil, fmt.Errorf("node with command %q has no id", nd.Command)
		}
		n := NewNode(nd.Command)
		n.id = nd.ID
		n.name = nd.Name
		n.rect = nd.Rect
		for _, pd := range nd.Ports {
			n.ports.Set(pd.Name, &Port{node: nd.ID, name: pd.Name, literal: pd.Literal, param: -1})
		}
		if err := g.add(n); err != nil {
			rollback()
			return nil, err
		}
		added = append(added, n)
	}

	for _, nd := range docs {
		for _, pd := range nd.Ports {
			for _, c := range pd.Connections {
				from := domain.PortRef{Node: nd.ID, Port: pd.Name, Index: c.Index}
				if _, ok := g.nodes.Get(c.To.Node); !ok {
					rollback()
					return nil, &domain.PortError{Ref: c.To, Err: domain.ErrDanglingConnection}
				}
				if _, err := g.lookupPort(from); err != nil {
					g.logger.Warn("dropping edge of removed port", "from", from.String(), "to", c.To.String())
					continue
				}
				if _, err := g.lookupPort(c.To); err != nil {
					g.logger.Warn("dropping edge of removed port", "from", from.String(), "to", c.To.String())
					continue
				}
				g.links.add(from, c.To)
			}
		}
	}
	return added, nil
}

// Marshal encodes the graph as YAML.
func (g *Graph) Marshal() ([]byte, error) {
	return yaml.Marshal(g.Doc())
}

// MarshalJSON encodes the graph as JSON.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Doc())
}

// Unmarshal replaces the graph content with a YAML or JSON document.
func (g *Graph) Unmarshal(data []byte) error {
	var doc domain.GraphDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode graph: %w", err)
	}
	return g.Load(&doc)
}

// Clone returns an independent graph with the same nodes, edges, values and options.
func (g *Graph) Clone() (*Graph, error) {
	doc := g.Doc()
	c := &Graph{
		registry: g.registry,
		codec:    g.codec,
		host:     g.host,
		clock:    g.clock,
		logger:   g.logger,
		hooks:    g.hooks,
		nodes:    orderedmap.New[string, *Node](),
		links:    newLinks(),
		values:   NewValues(g.values.schema),
	}
	if err := c.Load(doc); err != nil {
		return nil, err
	}
	return c, nil
}

// Copy serializes a subset of nodes. Edges to nodes outside the subset are kept
// in the documents and dropped by Paste.
func (g *Graph) Copy(ids ...string) []domain.NodeDoc {
	g.mu.Lock()
	defer g.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.NodeDoc
	for pair := g.nodes.Oldest(); pair != nil; pair = pair.Next() {
		if want[pair.Key] {
			out = append(out, g.nodeDoc(pair.Value))
		}
	}
	return out
}

// Paste inserts copies of docs with fresh ids. Edges between pasted nodes are
// kept, edges leaving the subset are dropped, and positions are shifted so the
// top-left corner of the subset lands at at.
func (g *Graph) Paste(docs []domain.NodeDoc, at domain.Point) ([]*Node, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	ids := make(map[string]string, len(docs))
	minX, minY := math.Inf(1), math.Inf(1)
	for _, nd := range docs {
		ids[nd.ID] = uuid.NewString()
		minX = math.Min(minX, nd.Rect.X)
		minY = math.Min(minY, nd.Rect.Y)
	}

	remapped := make([]domain.NodeDoc, len(docs))
	for i, nd := range docs {
		out := domain.NodeDoc{
			ID:      ids[nd.ID],
			Name:    nd.Name,
			Command: nd.Command,
			Rect:    nd.Rect.Offset(at.X-minX, at.Y-minY),
		}
		for _, pd := range nd.Ports {
			port := domain.PortDoc{Name: pd.Name, Literal: pd.Literal}
			for _, c := range pd.Connections {
				to, inside := ids[c.To.Node]
				if !inside {
					continue
				}
				c.To.Node = to
				port.Connections = append(port.Connections, c)
			}
			out.Ports = append(out.Ports, port)
		}
		remapped[i] = out
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.insert(remapped)
}
