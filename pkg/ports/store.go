package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// CheckpointStore defines the interface for persisting execution checkpoints.
// Save must be atomic per key: a reader never observes a partially written checkpoint.
type CheckpointStore interface {
	// Save persists the checkpoint for a given session ID, replacing any previous one.
	Save(ctx context.Context, sessionID string, cp *domain.Checkpoint) error

	// Load retrieves the checkpoint for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error)

	// Delete removes the checkpoint. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of every stored session.
	List(ctx context.Context) ([]string, error)
}
