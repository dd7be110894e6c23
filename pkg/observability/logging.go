package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tendril/pkg/domain"
)

// LogHooks writes one structured record per lifecycle event.
// Node traffic is logged at debug, outcomes at info, failures at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter",
				"session_id", e.SessionID,
				"run_id", e.RunID,
				"node_id", e.NodeID,
				"step", e.Step,
			)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "node_failed",
					"session_id", e.SessionID,
					"node_id", e.NodeID,
					"duration", e.Duration,
					"err", e.Err,
				)
				return
			}
			logger.DebugContext(ctx, "node_leave",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"next", e.Next,
				"duration", e.Duration,
			)
		},
		OnPause: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "paused", "session_id", e.SessionID, "before", e.NodeID)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			attrs := []any{
				"session_id", e.SessionID,
				"run_id", e.RunID,
				"status", e.Status,
				"steps", e.Steps,
			}
			if e.Err != nil {
				logger.WarnContext(ctx, "run_end", append(attrs, "err", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "run_end", attrs...)
		},
	}
}
