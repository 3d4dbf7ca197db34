package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// LogHooks returns lifecycle hooks writing one structured line per event.
// Node enter and leave are logged at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "traversal", e.TraversalID, "node", e.NodeID, "command", e.Command)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "traversal", e.TraversalID, "node", e.NodeID, "elapsed", e.Elapsed)
		},
		OnNodeError: func(ctx context.Context, e *domain.NodeEvent) {
			logger.ErrorContext(ctx, "node_error", "traversal", e.TraversalID, "node", e.NodeID, "command", e.Command, "err", e.Err)
		},
		OnTraversalStart: func(ctx context.Context, e *domain.TraversalEvent) {
			logger.InfoContext(ctx, "traversal_start", "traversal", e.TraversalID, "start", e.StartNodeID)
		},
		OnTraversalEnd: func(ctx context.Context, e *domain.TraversalEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "traversal_end", "traversal", e.TraversalID, "steps", e.Steps, "elapsed", e.Elapsed, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "traversal_end", "traversal", e.TraversalID, "steps", e.Steps, "elapsed", e.Elapsed)
		},
	}
}
