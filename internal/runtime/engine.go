// Package runtime implements the step loop that drives a compiled graph.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/interrupt"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/google/uuid"
)

// Engine executes a graph over a state of type S, committing a checkpoint
// after every step. Safe for concurrent use; runs of the same session are serialized.
type Engine[S any] struct {
	graph *graph.Graph[S]
	cfg   config
}

// NewEngine binds a compiled graph to its collaborators.
func NewEngine[S any](g *graph.Graph[S], opts ...Option) (*Engine[S], error) {
	if g == nil {
		return nil, errors.New("graph is nil")
	}
	cfg := config{
		codec:    codec.JSON,
		logger:   logging.NewNop(),
		maxSteps: DefaultMaxSteps,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.store == nil {
		cfg.store = memory.NewStore()
	}
	if cfg.gate == nil {
		if err := checkNodes(g, cfg.gateNodes); err != nil {
			return nil, err
		}
		cfg.gate = interrupt.Before(cfg.gateNodes...)
	}
	if cfg.sessions == nil {
		sessOpts := []session.Option{session.WithLogger(cfg.logger)}
		if cfg.locker != nil {
			sessOpts = append(sessOpts, session.WithLocker(cfg.locker))
		}
		cfg.sessions = session.NewManager(sessOpts...)
	}

	return &Engine[S]{graph: g, cfg: cfg}, nil
}

func checkNodes[S any](g *graph.Graph[S], nodes []string) error {
	for _, n := range nodes {
		if !g.Has(n) {
			return fmt.Errorf("interrupt before '%s': %w", n, graph.ErrUnknownNode)
		}
	}
	return nil
}

// Graph returns the compiled graph.
func (e *Engine[S]) Graph() *graph.Graph[S] { return e.graph }

// Store returns the checkpoint store.
func (e *Engine[S]) Store() ports.CheckpointStore { return e.cfg.store }

// Topology describes the compiled graph.
func (e *Engine[S]) Topology() domain.Topology { return e.graph.Topology() }

// Run executes the session until it reaches END, pauses before a gated node, or fails.
//
// Without domain.Resume the stored checkpoint is replaced by one holding input at START.
// With it, execution continues from the stored cursor and input is ignored.
// A non-nil error is always accompanied by a result whose Status is
// StatusFailed or StatusCancelled and whose State is the last committed state.
func (e *Engine[S]) Run(ctx context.Context, sessionID string, input S, opts ...domain.RunOption) (*domain.RunResult[S], error) {
	if sessionID == "" {
		return nil, domain.ErrEmptySessionID
	}
	rc := domain.NewRunConfig(opts...)

	gate := e.cfg.gate
	if rc.OverrideInterrupts {
		if err := checkNodes(e.graph, rc.Interrupts); err != nil {
			return nil, err
		}
		gate = interrupt.Before(rc.Interrupts...)
	}

	var (
		res    *domain.RunResult[S]
		runErr error
	)
	lockErr := e.cfg.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		res, runErr = e.run(ctx, sessionID, input, rc.Resume, gate)
		return nil
	})
	if lockErr != nil {
		res = &domain.RunResult[S]{SessionID: sessionID, Status: domain.StatusFailed}
		if ctx.Err() != nil {
			res.Status = domain.StatusCancelled
		}
		return res, fmt.Errorf("lock session '%s': %w", sessionID, lockErr)
	}
	return res, runErr
}

// runner carries the mutable bookkeeping of one invocation.
type runner[S any] struct {
	e     *Engine[S]
	res   *domain.RunResult[S]
	cp    *domain.Checkpoint
	state S
	// committed holds the bytes of the last successful save. Transforms may
	// mutate reference-typed state in place, so failures decode from here.
	committed *domain.Checkpoint
}

func (e *Engine[S]) run(ctx context.Context, sessionID string, input S, resume bool, gate ports.InterruptController) (*domain.RunResult[S], error) {
	r := &runner[S]{
		e:   e,
		res: &domain.RunResult[S]{SessionID: sessionID, RunID: e.cfg.newRunID()},
	}
	log := e.cfg.logger.With("session_id", sessionID, "run_id", r.res.RunID)

	resuming := false
	if resume {
		cp, err := e.cfg.store.Load(ctx, sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return r.fail(ctx, domain.ErrNoCheckpoint)
		}
		if err != nil {
			return r.fail(ctx, &domain.CheckpointStoreError{Op: "load", SessionID: sessionID, Err: err})
		}
		state, err := e.decode(cp)
		if err != nil {
			return r.fail(ctx, err)
		}
		r.cp, r.state = cp, state
		r.res.State = state
		r.committed = &domain.Checkpoint{State: cp.State, Codec: cp.Codec}

		if cp.Status == domain.CheckpointCompleted {
			log.Debug("checkpoint already completed")
			return r.finish(ctx, domain.StatusCompleted, nil)
		}
		resuming = cp.Status == domain.CheckpointPaused
		log.Debug("resuming", "cursor", cp.Cursor, "status", cp.Status, "step", cp.Step)
	} else {
		if err := ctx.Err(); err != nil {
			r.state = input
			return r.cancel(ctx, err)
		}
		r.cp = &domain.Checkpoint{
			SessionID: sessionID,
			RunID:     r.res.RunID,
			Cursor:    graph.START,
			Status:    domain.CheckpointRunning,
		}
		if err := r.commit(ctx, input); err != nil {
			return r.fail(ctx, err)
		}
	}
	r.cp.RunID = r.res.RunID

	invoked := 0
	for first := true; ; first = false {
		if err := ctx.Err(); err != nil {
			return r.cancel(ctx, err)
		}

		cursor := r.cp.Cursor
		if cursor == graph.END {
			if r.cp.Status != domain.CheckpointCompleted {
				r.cp.Status = domain.CheckpointCompleted
				if err := r.commit(ctx, r.state); err != nil {
					return r.fail(ctx, err)
				}
			}
			log.Info("run completed", "steps", r.res.Steps)
			return r.finish(ctx, domain.StatusCompleted, nil)
		}

		// A resumed pause has already been approved for exactly this node.
		if cursor != graph.START && gate.ShouldPause(cursor) && !(resuming && first) {
			r.cp.Status = domain.CheckpointPaused
			if err := r.commit(ctx, r.state); err != nil {
				return r.fail(ctx, err)
			}
			r.e.emitPause(ctx, r.res, cursor, r.cp.Step)
			r.res.PausedBefore = cursor
			log.Info("run paused", "before", cursor)
			return r.finish(ctx, domain.StatusPaused, nil)
		}

		next, elapsed := r.state, time.Duration(0)
		if cursor != graph.START {
			if invoked >= e.cfg.maxSteps {
				return r.fail(ctx, fmt.Errorf("%w: %d node invocations before '%s'", domain.ErrStepLimit, e.cfg.maxSteps, cursor))
			}
			invoked++

			out, took, err := e.invoke(ctx, r.res, cursor, r.cp.Step, r.state)
			if err != nil {
				return r.fail(ctx, err)
			}
			next, elapsed = out, took
		}

		to, err := e.graph.Next(cursor, next)
		if cursor != graph.START {
			e.emitLeave(ctx, r.res, cursor, r.cp.Step, to, elapsed, err)
		}
		if err != nil {
			return r.fail(ctx, err)
		}

		prevCursor, prevStep := r.cp.Cursor, r.cp.Step
		r.cp.Cursor = to
		r.cp.Status = domain.CheckpointRunning
		r.cp.Step++
		if err := r.commit(ctx, next); err != nil {
			r.cp.Cursor, r.cp.Step = prevCursor, prevStep
			return r.fail(ctx, err)
		}
		r.res.Steps++
		log.Debug("step committed", "from", cursor, "to", to, "step", r.cp.Step)
	}
}

// invoke runs one transform. START is not a node, so it never reaches here.
func (e *Engine[S]) invoke(ctx context.Context, res *domain.RunResult[S], node string, step int, state S) (S, time.Duration, error) {
	fn, ok := e.graph.Node(node)
	if !ok {
		return state, 0, &domain.NodeExecutionError{Node: node, Cause: fmt.Errorf("%w: '%s'", graph.ErrUnknownNode, node)}
	}

	e.emitEnter(ctx, res, node, step)
	start := time.Now()
	out, err := fn(ctx, state)
	took := time.Since(start)
	if err != nil {
		e.emitLeave(ctx, res, node, step, "", took, err)
		return state, took, &domain.NodeExecutionError{Node: node, Cause: err}
	}
	return out, took, nil
}

// commit encodes state and saves the current checkpoint. It is the single durability point:
// the in-memory state only advances once the save succeeded.
func (r *runner[S]) commit(ctx context.Context, state S) error {
	data, err := r.e.cfg.codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	r.cp.State = data
	r.cp.Codec = r.e.cfg.codec.Name()
	r.cp.UpdatedAt = r.e.cfg.now().UTC()

	if err := r.e.cfg.store.Save(ctx, r.cp.SessionID, r.cp); err != nil {
		return &domain.CheckpointStoreError{Op: "save", SessionID: r.cp.SessionID, Err: err}
	}
	r.state = state
	r.res.State = state
	r.committed = &domain.Checkpoint{State: data, Codec: r.cp.Codec}
	r.e.emitCheckpoint(ctx, r.res, r.cp)
	return nil
}

func (r *runner[S]) finish(ctx context.Context, status domain.RunStatus, err error) (*domain.RunResult[S], error) {
	r.res.Status = status
	r.res.State = r.state
	r.e.emitRunEnd(ctx, r.res, err)
	return r.res, err
}

func (r *runner[S]) fail(ctx context.Context, err error) (*domain.RunResult[S], error) {
	r.e.cfg.logger.Warn("run failed",
		"session_id", r.res.SessionID,
		"run_id", r.res.RunID,
		"err", err,
	)
	if r.committed != nil {
		if state, derr := r.e.decode(r.committed); derr == nil {
			r.state = state
		}
	}
	return r.finish(ctx, domain.StatusFailed, err)
}

func (r *runner[S]) cancel(ctx context.Context, cause error) (*domain.RunResult[S], error) {
	cursor := graph.START
	if r.cp != nil {
		cursor = r.cp.Cursor
	}
	return r.finish(ctx, domain.StatusCancelled, fmt.Errorf("run cancelled before '%s': %w", cursor, cause))
}

func (e *Engine[S]) decode(cp *domain.Checkpoint) (S, error) {
	var state S
	cd, err := codec.ByName(cp.Codec)
	if err != nil {
		return state, fmt.Errorf("%w: %v", domain.ErrStateDecode, err)
	}
	if err := cd.Unmarshal(cp.State, &state); err != nil {
		return state, fmt.Errorf("%w: %v", domain.ErrStateDecode, err)
	}
	return state, nil
}
