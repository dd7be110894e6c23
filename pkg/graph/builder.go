package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

const (
	// START is the implicit entry sentinel.
	START = "__start__"
	// END is the terminal sentinel. Reaching it completes the run.
	END = "__end__"
)

// Transform is the business logic of a node.
type Transform[S any] func(ctx context.Context, state S) (S, error)

// Router picks an opaque key that is mapped to a target node.
type Router[S any] func(state S) string

type rule[S any] struct {
	to      string
	router  Router[S]
	targets map[string]string
}

func (r rule[S]) conditional() bool { return r.router != nil }

// Builder assembles a graph. It is not safe for concurrent use.
type Builder[S any] struct {
	order    []string
	nodes    map[string]Transform[S]
	rules    map[string]rule[S]
	compiled bool
}

// NewBuilder creates an empty graph builder.
func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{
		nodes: make(map[string]Transform[S]),
		rules: make(map[string]rule[S]),
	}
}

// AddNode declares a node.
func (b *Builder[S]) AddNode(name string, fn Transform[S]) error {
	if b.compiled {
		return buildErr("add_node", name, ErrAlreadyCompiled)
	}
	if name == "" || name == START || name == END {
		return buildErr("add_node", name, ErrInvalidNode)
	}
	if fn == nil {
		return buildErr("add_node", name, fmt.Errorf("%w: nil transform", ErrInvalidNode))
	}
	if _, ok := b.nodes[name]; ok {
		return buildErr("add_node", name, ErrDuplicateNode)
	}
	b.nodes[name] = fn
	b.order = append(b.order, name)
	return nil
}

// AddEdge declares a fixed transition. to may be END.
func (b *Builder[S]) AddEdge(from, to string) error {
	const op = "add_edge"
	if err := b.checkSource(op, from); err != nil {
		return err
	}
	if to == START {
		return buildErr(op, from, fmt.Errorf("%w: edge into %s", ErrInvalidEdge, START))
	}
	if !b.declared(to) {
		return buildErr(op, from, fmt.Errorf("%w: target '%s'", ErrUnknownNode, to))
	}
	b.rules[from] = rule[S]{to: to}
	return nil
}

// AddConditionalEdge declares a data-dependent transition out of from.
// Every value in targets must be a declared node or END.
func (b *Builder[S]) AddConditionalEdge(from string, router Router[S], targets map[string]string) error {
	const op = "add_conditional_edge"
	if err := b.checkSource(op, from); err != nil {
		return err
	}
	if router == nil {
		return buildErr(op, from, fmt.Errorf("%w: nil router", ErrInvalidEdge))
	}
	if len(targets) == 0 {
		return buildErr(op, from, fmt.Errorf("%w: empty target map", ErrInvalidEdge))
	}
	mapped := make(map[string]string, len(targets))
	for key, to := range targets {
		if to == START {
			return buildErr(op, from, fmt.Errorf("%w: key '%s' targets %s", ErrInvalidEdge, key, START))
		}
		if !b.declared(to) {
			return buildErr(op, from, fmt.Errorf("%w: key '%s' targets '%s'", ErrUnknownNode, key, to))
		}
		mapped[key] = to
	}
	b.rules[from] = rule[S]{router: router, targets: mapped}
	return nil
}

// SetEntryPoint is shorthand for AddEdge(START, name).
func (b *Builder[S]) SetEntryPoint(name string) error {
	return b.AddEdge(START, name)
}

// SetFinishPoint is shorthand for AddEdge(name, END).
func (b *Builder[S]) SetFinishPoint(name string) error {
	return b.AddEdge(name, END)
}

func (b *Builder[S]) checkSource(op, from string) error {
	if b.compiled {
		return buildErr(op, from, ErrAlreadyCompiled)
	}
	if from == END {
		return buildErr(op, from, fmt.Errorf("%w: edge out of %s", ErrInvalidEdge, END))
	}
	if from != START {
		if _, ok := b.nodes[from]; !ok {
			return buildErr(op, from, ErrUnknownNode)
		}
	}
	if _, ok := b.rules[from]; ok {
		return buildErr(op, from, ErrDuplicateEdge)
	}
	return nil
}

func (b *Builder[S]) declared(name string) bool {
	if name == END {
		return true
	}
	_, ok := b.nodes[name]
	return ok
}

// CompileOption tunes validation.
type CompileOption func(*compileConfig)

type compileConfig struct {
	allowUnreachable bool
	logger           *slog.Logger
}

// AllowUnreachable downgrades unreachable nodes from an error to a logged warning.
func AllowUnreachable() CompileOption {
	return func(c *compileConfig) { c.allowUnreachable = true }
}

// WithLogger sets the logger used for validation warnings.
func WithLogger(l *slog.Logger) CompileOption {
	return func(c *compileConfig) { c.logger = l }
}

// Compile validates the builder and freezes it into an immutable Graph.
// The builder rejects further mutation afterwards.
func (b *Builder[S]) Compile(opts ...CompileOption) (*Graph[S], error) {
	if b.compiled {
		return nil, buildErr("compile", "", ErrAlreadyCompiled)
	}
	cfg := compileConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := b.validate(cfg); err != nil {
		return nil, err
	}

	g := &Graph[S]{
		order: append([]string(nil), b.order...),
		nodes: make(map[string]Transform[S], len(b.nodes)),
		rules: make(map[string]rule[S], len(b.rules)),
	}
	for k, v := range b.nodes {
		g.nodes[k] = v
	}
	for k, v := range b.rules {
		g.rules[k] = v
	}
	b.compiled = true
	return g, nil
}
