package registry

import (
	"context"
	"log/slog"
)

// Self is the handle a command receives for its own node when it declares a
// parameter of this type.
type Self interface {
	// ID returns the node id.
	ID() string
	// SetNextPort overrides which control output the walk follows after this execution.
	SetNextPort(name string, index int) error
	// Value resolves the current value of one of the node's ports.
	Value(ctx context.Context, port string) (any, error)
	// SetValue writes one of the node's ports.
	SetValue(port string, value any) error
	// Shared returns the graph-wide values.
	Shared() Values
	// Logger returns the graph logger scoped to this node.
	Logger() *slog.Logger
	// RunPort starts a new walk from whatever the given control output connects to.
	RunPort(ctx context.Context, port string) error
}

// Values is the graph-wide key/value store visible to commands.
type Values interface {
	Get(key string) (any, bool)
	Set(key string, value any) error
	Delete(key string)
}
