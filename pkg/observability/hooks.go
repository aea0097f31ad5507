package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/chatflow/pkg/domain"
)

// Chain combines several hook sets; each callback runs in argument order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			for _, h := range sets {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnSuspend: func(ctx context.Context, e *domain.NodeEvent) {
			for _, h := range sets {
				if h.OnSuspend != nil {
					h.OnSuspend(ctx, e)
				}
			}
		},
		OnReply: func(ctx context.Context, e *domain.NodeEvent) {
			for _, h := range sets {
				if h.OnReply != nil {
					h.OnReply(ctx, e)
				}
			}
		},
		OnTerminal: func(ctx context.Context, runID, lastNodeID string) {
			for _, h := range sets {
				if h.OnTerminal != nil {
					h.OnTerminal(ctx, runID, lastNodeID)
				}
			}
		},
	}
}

// LogHooks logs every lifecycle event at info level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "node_enter", "run_id", e.RunID, "node_id", e.NodeID, "kind", e.Kind)
		},
		OnSuspend: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "suspend", "run_id", e.RunID, "node_id", e.NodeID)
		},
		OnReply: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "reply", "run_id", e.RunID, "node_id", e.NodeID)
		},
		OnTerminal: func(ctx context.Context, runID, lastNodeID string) {
			logger.InfoContext(ctx, "terminal", "run_id", runID, "node_id", lastNodeID)
		},
	}
}
