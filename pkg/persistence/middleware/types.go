// Package middleware wraps graph stores with at-rest protections for the
// shared values they hold.
package middleware

import "github.com/aretw0/flowgraph/pkg/ports"

// Middleware wraps a GraphStore to add behavior.
type Middleware func(ports.GraphStore) ports.GraphStore

// Chain applies middlewares so the first one is outermost.
func Chain(store ports.GraphStore, mws ...Middleware) ports.GraphStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
