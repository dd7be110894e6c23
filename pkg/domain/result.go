package domain

// RunStatus is the outcome of a single invocation.
type RunStatus string

const (
	StatusCompleted RunStatus = "completed" // END reached
	StatusPaused    RunStatus = "paused"    // Interrupted before a gated node
	StatusFailed    RunStatus = "failed"    // A node, router or store failed
	StatusCancelled RunStatus = "cancelled" // The caller's context was done before a step
)

// RunResult is produced fresh by every invocation.
// It is never persisted beyond the checkpoint it was derived from.
type RunResult[S any] struct {
	SessionID string    `json:"session_id"`
	RunID     string    `json:"run_id"`
	State     S         `json:"state"`
	Status    RunStatus `json:"status"`

	// PausedBefore is the gated node name. Set iff Status == StatusPaused.
	PausedBefore string `json:"paused_before,omitempty"`

	// Steps is the number of steps committed by this invocation.
	Steps int `json:"steps"`
}

// Snapshot is a decoded view of a stored checkpoint.
type Snapshot[S any] struct {
	SessionID string           `json:"session_id"`
	State     S                `json:"state"`
	Cursor    string           `json:"cursor"`
	Status    CheckpointStatus `json:"status"`
	Step      int              `json:"step"`
}
