package domain

// Rect is the editor layout of a node. Only the origin matters to the engine.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Height float64 `json:"height,omitempty" yaml:"height,omitempty"`
}

// Offset returns the rect moved by dx, dy.
func (r Rect) Offset(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Point is a position on the editor canvas.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// GraphDoc is the serialized form of a graph.
type GraphDoc struct {
	Nodes  []NodeDoc      `json:"nodes" yaml:"nodes"`
	Values map[string]any `json:"values,omitempty" yaml:"values,omitempty"`
}

// NodeDoc is the serialized form of a node.
type NodeDoc struct {
	ID      string    `json:"id" yaml:"id"`
	Name    string    `json:"name,omitempty" yaml:"name,omitempty"`
	Command string    `json:"command" yaml:"command"`
	Rect    Rect      `json:"rect" yaml:"rect"`
	Ports   []PortDoc `json:"ports,omitempty" yaml:"ports,omitempty"`
}

// PortDoc is the serialized form of a port: its literal and its edges.
type PortDoc struct {
	Name        string       `json:"name" yaml:"name"`
	Literal     string       `json:"literal,omitempty" yaml:"literal,omitempty"`
	Connections []Connection `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// Port returns the port document with the given name.
func (n *NodeDoc) Port(name string) (*PortDoc, bool) {
	for i := range n.Ports {
		if n.Ports[i].Name == name {
			return &n.Ports[i], true
		}
	}
	return nil, false
}

// Node returns the node document with the given id.
func (g *GraphDoc) Node(id string) (*NodeDoc, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the document. Values are copied shallowly.
func (g *GraphDoc) Clone() *GraphDoc {
	out := &GraphDoc{Nodes: make([]NodeDoc, len(g.Nodes))}
	for i, n := range g.Nodes {
		n.Ports = append([]PortDoc(nil), n.Ports...)
		for j, p := range n.Ports {
			n.Ports[j].Connections = append([]Connection(nil), p.Connections...)
		}
		out.Nodes[i] = n
	}
	if g.Values != nil {
		out.Values = make(map[string]any, len(g.Values))
		for k, v := range g.Values {
			out.Values[k] = v
		}
	}
	return out
}
