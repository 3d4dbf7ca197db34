package graph

import (
	"sort"

	"github.com/aretw0/flowgraph/pkg/domain"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// links is the connection registry. Every edge is stored on both endpoints so
// either side can enumerate it, and each endpoint keeps insertion order.
type links struct {
	adj   map[domain.PortRef]*orderedmap.OrderedMap[domain.PortRef, struct{}]
	nodes map[string]map[domain.PortRef]struct{}
}

func newLinks() *links {
	return &links{
		adj:   make(map[domain.PortRef]*orderedmap.OrderedMap[domain.PortRef, struct{}]),
		nodes: make(map[string]map[domain.PortRef]struct{}),
	}
}

func (l *links) add(a, b domain.PortRef) {
	l.half(a, b)
	l.half(b, a)
}

func (l *links) remove(a, b domain.PortRef) {
	l.dropHalf(a, b)
	l.dropHalf(b, a)
}

func (l *links) half(a, b domain.PortRef) {
	m, ok := l.adj[a]
	if !ok {
		m = orderedmap.New[domain.PortRef, struct{}]()
		l.adj[a] = m
		refs, ok := l.nodes[a.Node]
		if !ok {
			refs = make(map[domain.PortRef]struct{})
			l.nodes[a.Node] = refs
		}
		refs[a] = struct{}{}
	}
	m.Set(b, struct{}{})
}

func (l *links) dropHalf(a, b domain.PortRef) {
	m, ok := l.adj[a]
	if !ok {
		return
	}
	m.Delete(b)
	if m.Len() > 0 {
		return
	}
	delete(l.adj, a)
	if refs, ok := l.nodes[a.Node]; ok {
		delete(refs, a)
		if len(refs) == 0 {
			delete(l.nodes, a.Node)
		}
	}
}

func (l *links) has(a, b domain.PortRef) bool {
	m, ok := l.adj[a]
	if !ok {
		return false
	}
	_, ok = m.Get(b)
	return ok
}

// of returns the peers of a slot in connection order.
func (l *links) of(a domain.PortRef) []domain.PortRef {
	m, ok := l.adj[a]
	if !ok {
		return nil
	}
	out := make([]domain.PortRef, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

func (l *links) first(a domain.PortRef) (domain.PortRef, bool) {
	m, ok := l.adj[a]
	if !ok || m.Len() == 0 {
		return domain.PortRef{}, false
	}
	return m.Oldest().Key, true
}

func (l *links) count(a domain.PortRef) int {
	if m, ok := l.adj[a]; ok {
		return m.Len()
	}
	return 0
}

// clear removes every edge of a slot, on both sides.
func (l *links) clear(a domain.PortRef) {
	for _, peer := range l.of(a) {
		l.remove(a, peer)
	}
}

// slotsOf returns the connected slots of one port, ordered by index.
func (l *links) slotsOf(node, port string) []domain.PortRef {
	var out []domain.PortRef
	for ref := range l.nodes[node] {
		if ref.Port == port {
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (l *links) clearPort(node, port string) {
	for _, ref := range l.slotsOf(node, port) {
		l.clear(ref)
	}
}

// clearFrom removes the edges of every slot at or past index n.
func (l *links) clearFrom(node, port string, n int) {
	for _, ref := range l.slotsOf(node, port) {
		if ref.Index >= n {
			l.clear(ref)
		}
	}
}

// shift moves the edges of the slots at or past index at by delta. A
// negative delta drops the edges of slot at first.
func (l *links) shift(node, port string, at, delta int) {
	type edge struct{ a, b domain.PortRef }
	var moved []edge
	for _, ref := range l.slotsOf(node, port) {
		if ref.Index < at {
			continue
		}
		if delta < 0 && ref.Index == at {
			l.clear(ref)
			continue
		}
		for _, peer := range l.of(ref) {
			moved = append(moved, edge{ref, peer})
		}
		l.clear(ref)
	}
	for _, e := range moved {
		l.add(e.a.Slot(e.a.Index+delta), e.b)
	}
}

func (l *links) clearNode(node string) {
	refs := make([]domain.PortRef, 0, len(l.nodes[node]))
	for ref := range l.nodes[node] {
		refs = append(refs, ref)
	}
	for _, ref := range refs {
		l.clear(ref)
	}
}

func (l *links) rename(from, to string) {
	type edge struct{ a, b domain.PortRef }
	var edges []edge
	for ref := range l.nodes[from] {
		for _, peer := range l.of(ref) {
			edges = append(edges, edge{ref, peer})
		}
	}
	l.clearNode(from)
	move := func(r domain.PortRef) domain.PortRef {
		if r.Node == from {
			r.Node = to
		}
		return r
	}
	for _, e := range edges {
		l.add(move(e.a), move(e.b))
	}
}
