package runtime

import (
	"context"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
)

func (e *Engine[S]) base(res *domain.RunResult[S], t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: e.cfg.now(),
		Type:      t,
		SessionID: res.SessionID,
		RunID:     res.RunID,
	}
}

func (e *Engine[S]) emitEnter(ctx context.Context, res *domain.RunResult[S], node string, step int) {
	if e.cfg.hooks.OnNodeEnter == nil {
		return
	}
	e.cfg.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: e.base(res, domain.EventNodeEnter),
		NodeID:    node,
		Step:      step,
	})
}

func (e *Engine[S]) emitLeave(ctx context.Context, res *domain.RunResult[S], node string, step int, next string, took time.Duration, err error) {
	if e.cfg.hooks.OnNodeLeave == nil {
		return
	}
	e.cfg.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: e.base(res, domain.EventNodeLeave),
		NodeID:    node,
		Step:      step,
		Next:      next,
		Duration:  took,
		Err:       err,
	})
}

func (e *Engine[S]) emitPause(ctx context.Context, res *domain.RunResult[S], node string, step int) {
	if e.cfg.hooks.OnPause == nil {
		return
	}
	e.cfg.hooks.OnPause(ctx, &domain.NodeEvent{
		EventBase: e.base(res, domain.EventPause),
		NodeID:    node,
		Step:      step,
	})
}

func (e *Engine[S]) emitCheckpoint(ctx context.Context, res *domain.RunResult[S], cp *domain.Checkpoint) {
	if e.cfg.hooks.OnCheckpoint == nil {
		return
	}
	e.cfg.hooks.OnCheckpoint(ctx, &domain.CheckpointEvent{
		EventBase: e.base(res, domain.EventCheckpoint),
		Cursor:    cp.Cursor,
		Status:    cp.Status,
		Step:      cp.Step,
	})
}

func (e *Engine[S]) emitRunEnd(ctx context.Context, res *domain.RunResult[S], err error) {
	if e.cfg.hooks.OnRunEnd == nil {
		return
	}
	e.cfg.hooks.OnRunEnd(ctx, &domain.RunEvent{
		EventBase:    e.base(res, domain.EventRunEnd),
		Status:       res.Status,
		PausedBefore: res.PausedBefore,
		Steps:        res.Steps,
		Err:          err,
	})
}
