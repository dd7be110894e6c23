package domain

import (
	"time"
)

// CheckpointStatus describes where a persisted run stands.
type CheckpointStatus string

const (
	CheckpointRunning   CheckpointStatus = "running"   // Committed mid-run, cursor points at the next node
	CheckpointPaused    CheckpointStatus = "paused"    // Stopped before a gated node, waiting for resume
	CheckpointCompleted CheckpointStatus = "completed" // Cursor reached END
)

// Checkpoint is the persisted snapshot of a session.
// The state is kept encoded so stores never need to know its Go type.
type Checkpoint struct {
	// SessionID is the key the checkpoint is stored under.
	SessionID string `json:"session_id"`

	// RunID identifies the invocation that produced this checkpoint.
	RunID string `json:"run_id,omitempty"`

	// State holds the encoded state value.
	State []byte `json:"state"`

	// Codec names the encoding of State (e.g. "json", "yaml").
	Codec string `json:"codec"`

	// Cursor is the name of the next node to execute.
	Cursor string `json:"cursor"`

	// Status indicates whether the run is mid-flight, paused or done.
	Status CheckpointStatus `json:"status"`

	// Step counts committed steps since the session was (re)started.
	Step int `json:"step"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can't mutate shared bytes.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	next := *c
	if c.State != nil {
		next.State = make([]byte, len(c.State))
		copy(next.State, c.State)
	}
	return &next
}
