package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
)

// State returns the decoded checkpoint of a session.
func (e *Engine[S]) State(ctx context.Context, sessionID string) (*domain.Snapshot[S], error) {
	if sessionID == "" {
		return nil, domain.ErrEmptySessionID
	}
	cp, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state, err := e.decode(cp)
	if err != nil {
		return nil, err
	}
	return &domain.Snapshot[S]{
		SessionID: sessionID,
		State:     state,
		Cursor:    cp.Cursor,
		Status:    cp.Status,
		Step:      cp.Step,
	}, nil
}

// UpdateState applies fn to the stored state and saves the result in place.
// Cursor, status and step are preserved, so a paused run resumes with the edited state.
func (e *Engine[S]) UpdateState(ctx context.Context, sessionID string, fn func(S) (S, error)) error {
	if sessionID == "" {
		return domain.ErrEmptySessionID
	}
	return e.cfg.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		cp, err := e.load(ctx, sessionID)
		if err != nil {
			return err
		}
		state, err := e.decode(cp)
		if err != nil {
			return err
		}
		next, err := fn(state)
		if err != nil {
			return fmt.Errorf("update state: %w", err)
		}
		data, err := e.cfg.codec.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode state: %w", err)
		}
		cp.State = data
		cp.Codec = e.cfg.codec.Name()
		cp.UpdatedAt = e.cfg.now().UTC()
		if err := e.cfg.store.Save(ctx, sessionID, cp); err != nil {
			return &domain.CheckpointStoreError{Op: "save", SessionID: sessionID, Err: err}
		}
		e.cfg.logger.Debug("state updated", "session_id", sessionID, "cursor", cp.Cursor)
		return nil
	})
}

// Reset deletes the checkpoint of a session. The next Run starts fresh.
func (e *Engine[S]) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return domain.ErrEmptySessionID
	}
	return e.cfg.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if err := e.cfg.store.Delete(ctx, sessionID); err != nil {
			return &domain.CheckpointStoreError{Op: "delete", SessionID: sessionID, Err: err}
		}
		return nil
	})
}

// Sessions lists stored session IDs.
func (e *Engine[S]) Sessions(ctx context.Context) ([]string, error) {
	ids, err := e.cfg.store.List(ctx)
	if err != nil {
		return nil, &domain.CheckpointStoreError{Op: "list", Err: err}
	}
	return ids, nil
}

func (e *Engine[S]) load(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	cp, err := e.cfg.store.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, &domain.CheckpointStoreError{Op: "load", SessionID: sessionID, Err: err}
	}
	return cp, nil
}
