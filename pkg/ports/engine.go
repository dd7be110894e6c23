package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// Engine is the driving port used by adapters (HTTP, MCP, CLI).
// It is implemented by tendril.Engine.
type Engine[S any] interface {
	// Run executes the graph for a session until END, a pause, or a failure.
	Run(ctx context.Context, sessionID string, input S, opts ...domain.RunOption) (*domain.RunResult[S], error)

	// State returns the decoded checkpoint of a session.
	State(ctx context.Context, sessionID string) (*domain.Snapshot[S], error)

	// UpdateState rewrites the stored state without moving the cursor.
	UpdateState(ctx context.Context, sessionID string, fn func(S) (S, error)) error

	// Reset deletes the checkpoint of a session.
	Reset(ctx context.Context, sessionID string) error

	// Sessions lists stored session IDs.
	Sessions(ctx context.Context) ([]string, error)

	// Topology describes the compiled graph.
	Topology() domain.Topology
}
