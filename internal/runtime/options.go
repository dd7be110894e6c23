package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/session"
)

// DefaultMaxSteps bounds node invocations per Run, like a recursion limit.
const DefaultMaxSteps = 25

type config struct {
	store     ports.CheckpointStore
	codec     codec.Codec
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	gate      ports.InterruptController
	gateNodes []string
	locker    ports.DistributedLocker
	sessions  *session.Manager
	maxSteps  int
	now       func() time.Time
	newRunID  func() string
}

// Option configures an Engine.
type Option func(*config)

// WithStore sets the checkpoint store. Defaults to an in-memory store.
func WithStore(store ports.CheckpointStore) Option {
	return func(c *config) { c.store = store }
}

// WithCodec sets how state is encoded in checkpoints. Defaults to codec.JSON.
func WithCodec(cd codec.Codec) Option {
	return func(c *config) { c.codec = cd }
}

// WithLogger sets a structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithLifecycleHooks registers observability hooks.
// Calling it more than once merges the hooks in order.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) { c.hooks = c.hooks.Merge(hooks) }
}

// WithInterruptBefore pauses every run before the named nodes unless a run overrides it.
// The names must be declared in the graph.
func WithInterruptBefore(nodes ...string) Option {
	return func(c *config) {
		c.gateNodes = append([]string(nil), nodes...)
		c.gate = nil
	}
}

// WithInterruptController installs a custom gate instead of a node list.
func WithInterruptController(ctrl ports.InterruptController) Option {
	return func(c *config) {
		c.gate = ctrl
		c.gateNodes = nil
	}
}

// WithLocker adds distributed locking on top of the in-process session lock.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *config) { c.locker = locker }
}

// WithSessionManager shares a session lock manager between engines.
func WithSessionManager(m *session.Manager) Option {
	return func(c *config) { c.sessions = m }
}

// WithMaxSteps overrides DefaultMaxSteps. Values below 1 are ignored.
func WithMaxSteps(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithClock injects the time source used for checkpoint timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithRunIDGenerator replaces the UUID run ID generator.
func WithRunIDGenerator(fn func() string) Option {
	return func(c *config) { c.newRunID = fn }
}
