package domain

// RunConfig holds per-invocation settings.
type RunConfig struct {
	// Resume continues from the stored checkpoint instead of starting over.
	Resume bool

	// Interrupts replaces the engine's compiled gate for this call when OverrideInterrupts is set.
	Interrupts         []string
	OverrideInterrupts bool
}

// RunOption configures a single invocation.
type RunOption func(*RunConfig)

// Resume continues the stored checkpoint for the session.
func Resume() RunOption {
	return func(c *RunConfig) {
		c.Resume = true
	}
}

// InterruptBefore pauses before the given nodes for this call only.
func InterruptBefore(nodes ...string) RunOption {
	return func(c *RunConfig) {
		c.Interrupts = append([]string(nil), nodes...)
		c.OverrideInterrupts = true
	}
}

// WithoutInterrupts disables every gate for this call.
func WithoutInterrupts() RunOption {
	return func(c *RunConfig) {
		c.Interrupts = nil
		c.OverrideInterrupts = true
	}
}

// NewRunConfig applies opts over the zero config.
func NewRunConfig(opts ...RunOption) RunConfig {
	var c RunConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
