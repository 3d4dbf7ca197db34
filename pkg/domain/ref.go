package domain

import "fmt"

// PortRef addresses one slot of a port: the owning node, the port name and
// the slot index. Single ports only use index 0.
type PortRef struct {
	Node  string `json:"node" yaml:"node"`
	Port  string `json:"port" yaml:"port"`
	Index int    `json:"index,omitempty" yaml:"index,omitempty"`
}

func (r PortRef) String() string {
	if r.Index == 0 {
		return fmt.Sprintf("%s.%s", r.Node, r.Port)
	}
	return fmt.Sprintf("%s.%s[%d]", r.Node, r.Port, r.Index)
}

// Slot returns the ref of the same port at a different slot index.
func (r PortRef) Slot(index int) PortRef {
	r.Index = index
	return r
}

// Connection is one edge as seen from a port slot.
type Connection struct {
	Index int     `json:"index,omitempty" yaml:"index,omitempty"`
	To    PortRef `json:"to" yaml:"to"`
}
