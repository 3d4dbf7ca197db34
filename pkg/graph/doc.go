// Package graph holds the node graph and runs it.
//
// A Graph owns nodes, their typed ports and the edges between them. Edges
// live in a registry keyed by port slot, so ports only refer to nodes by id
// and removing a node cleanly drops everything that pointed at it.
//
// Execution follows control edges. A Traversal walks from a start node one
// node per Poll; timers and futures suspend the walk until they complete.
// Data inputs pull their value from upstream outputs on demand, running
// auto-run producers along the way. Walks are driven by a ports.Host.
package graph
