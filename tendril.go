package tendril

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/tendril/internal/runtime"
	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

type (
	// RunResult is the outcome of one Run call.
	RunResult[S any] = domain.RunResult[S]
	// Snapshot is the decoded checkpoint of a session.
	Snapshot[S any] = domain.Snapshot[S]
	// RunStatus is the outcome of a Run call.
	RunStatus = domain.RunStatus
	// RunOption configures a single Run call.
	RunOption = domain.RunOption
	// LifecycleHooks receives engine events.
	LifecycleHooks = domain.LifecycleHooks
	// Topology is the non-generic description of a compiled graph.
	Topology = domain.Topology
)

const (
	StatusCompleted = domain.StatusCompleted
	StatusPaused    = domain.StatusPaused
	StatusFailed    = domain.StatusFailed
	StatusCancelled = domain.StatusCancelled
)

// Engine is the high-level entry point for the library.
// It wraps the internal runtime and implements ports.Engine.
type Engine[S any] struct {
	runtime *runtime.Engine[S]
}

var _ ports.Engine[struct{}] = (*Engine[struct{}])(nil)

// Option configures an Engine.
type Option = runtime.Option

// WithStore sets the checkpoint store. Defaults to an in-memory store.
func WithStore(store ports.CheckpointStore) Option { return runtime.WithStore(store) }

// WithCodec sets how state is encoded in checkpoints.
func WithCodec(cd codec.Codec) Option { return runtime.WithCodec(cd) }

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option { return runtime.WithLogger(logger) }

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks LifecycleHooks) Option { return runtime.WithLifecycleHooks(hooks) }

// WithInterruptBefore pauses runs before the named nodes.
func WithInterruptBefore(nodes ...string) Option { return runtime.WithInterruptBefore(nodes...) }

// WithInterruptController installs a custom pause gate.
func WithInterruptController(ctrl ports.InterruptController) Option {
	return runtime.WithInterruptController(ctrl)
}

// WithLocker serializes sessions across processes.
func WithLocker(locker ports.DistributedLocker) Option { return runtime.WithLocker(locker) }

// WithMaxSteps bounds node invocations per Run.
func WithMaxSteps(n int) Option { return runtime.WithMaxSteps(n) }

// WithClock injects the time source used for checkpoint timestamps.
func WithClock(now func() time.Time) Option { return runtime.WithClock(now) }

// WithMetrics registers engine collectors on reg and feeds them from lifecycle hooks.
func WithMetrics(reg prometheus.Registerer) Option {
	return runtime.WithLifecycleHooks(observability.NewMetrics(reg).Hooks())
}

// Resume continues from the stored checkpoint instead of starting over.
func Resume() RunOption { return domain.Resume() }

// InterruptBefore replaces the engine's pause list for one call.
func InterruptBefore(nodes ...string) RunOption { return domain.InterruptBefore(nodes...) }

// WithoutInterrupts disables pausing for one call.
func WithoutInterrupts() RunOption { return domain.WithoutInterrupts() }

// New binds a compiled graph to an engine.
func New[S any](g *graph.Graph[S], opts ...Option) (*Engine[S], error) {
	rt, err := runtime.NewEngine(g, opts...)
	if err != nil {
		return nil, err
	}
	return &Engine[S]{runtime: rt}, nil
}

// Run executes the session until END, a pause, or a failure.
// Without Resume the session starts over from input.
func (e *Engine[S]) Run(ctx context.Context, sessionID string, input S, opts ...RunOption) (*RunResult[S], error) {
	return e.runtime.Run(ctx, sessionID, input, opts...)
}

// State returns the decoded checkpoint of a session.
func (e *Engine[S]) State(ctx context.Context, sessionID string) (*Snapshot[S], error) {
	return e.runtime.State(ctx, sessionID)
}

// UpdateState rewrites the stored state without moving the cursor.
func (e *Engine[S]) UpdateState(ctx context.Context, sessionID string, fn func(S) (S, error)) error {
	return e.runtime.UpdateState(ctx, sessionID, fn)
}

// Reset deletes the checkpoint of a session.
func (e *Engine[S]) Reset(ctx context.Context, sessionID string) error {
	return e.runtime.Reset(ctx, sessionID)
}

// Sessions lists stored session IDs.
func (e *Engine[S]) Sessions(ctx context.Context) ([]string, error) {
	return e.runtime.Sessions(ctx)
}

// Topology describes the compiled graph.
func (e *Engine[S]) Topology() Topology { return e.runtime.Topology() }

// Graph returns the compiled graph.
func (e *Engine[S]) Graph() *graph.Graph[S] { return e.runtime.Graph() }
