package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventPause      EventType = "pause"
	EventCheckpoint EventType = "checkpoint"
	EventRunEnd     EventType = "run_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	RunID     string    `json:"run_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID string `json:"node_id"`
	Step   int    `json:"step"`

	// Next and Duration are only set on leave.
	Next     string        `json:"next,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// CheckpointEvent is emitted after every save.
type CheckpointEvent struct {
	EventBase
	Cursor string           `json:"cursor"`
	Status CheckpointStatus `json:"status"`
	Step   int              `json:"step"`
}

// RunEvent is emitted once per invocation with its outcome.
type RunEvent struct {
	EventBase
	Status       RunStatus `json:"status"`
	PausedBefore string    `json:"paused_before,omitempty"`
	Steps        int       `json:"steps"`
	Err          error     `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnPause      func(context.Context, *NodeEvent)
	OnCheckpoint func(context.Context, *CheckpointEvent)
	OnRunEnd     func(context.Context, *RunEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter:  chain(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave:  chain(h.OnNodeLeave, other.OnNodeLeave),
		OnPause:      chain(h.OnPause, other.OnPause),
		OnCheckpoint: chain(h.OnCheckpoint, other.OnCheckpoint),
		OnRunEnd:     chain(h.OnRunEnd, other.OnRunEnd),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
