package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter      EventType = "node_enter"
	EventNodeLeave      EventType = "node_leave"
	EventNodeError      EventType = "node_error"
	EventTraversalStart EventType = "traversal_start"
	EventTraversalEnd   EventType = "traversal_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	TraversalID string    `json:"traversal_id"`
}

// NodeEvent represents entry into, exit from or failure of a node.
type NodeEvent struct {
	EventBase
	NodeID  string        `json:"node_id"`
	Command string        `json:"command"`
	Elapsed time.Duration `json:"elapsed,omitempty"`
	Err     error         `json:"-"`
}

// TraversalEvent represents the start or end of a walk.
type TraversalEvent struct {
	EventBase
	StartNodeID string        `json:"start_node_id"`
	Steps       int           `json:"steps,omitempty"`
	Elapsed     time.Duration `json:"elapsed,omitempty"`
	Err         error         `json:"-"`
}

// LifecycleHooks defines callbacks for graph execution observability.
// Hooks run after the graph lock is released.
type LifecycleHooks struct {
	OnNodeEnter      func(context.Context, *NodeEvent)
	OnNodeLeave      func(context.Context, *NodeEvent)
	OnNodeError      func(context.Context, *NodeEvent)
	OnTraversalStart func(context.Context, *TraversalEvent)
	OnTraversalEnd   func(context.Context, *TraversalEvent)
}

// MergeHooks fans every callback out to all given hook sets in order.
func MergeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnNodeLeave: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnNodeLeave != nil {
					h.OnNodeLeave(ctx, e)
				}
			}
		},
		OnNodeError: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnNodeError != nil {
					h.OnNodeError(ctx, e)
				}
			}
		},
		OnTraversalStart: func(ctx context.Context, e *TraversalEvent) {
			for _, h := range hooks {
				if h.OnTraversalStart != nil {
					h.OnTraversalStart(ctx, e)
				}
			}
		},
		OnTraversalEnd: func(ctx context.Context, e *TraversalEvent) {
			for _, h := range hooks {
				if h.OnTraversalEnd != nil {
					h.OnTraversalEnd(ctx, e)
				}
			}
		},
	}
}
