package graph

import (
	"errors"
	"fmt"
)

// Validate checks the builder without compiling it.
// All problems are joined into one error; each is a *BuildError.
func (b *Builder[S]) Validate(opts ...CompileOption) error {
	cfg := compileConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return b.validate(cfg)
}

func (b *Builder[S]) validate(cfg compileConfig) error {
	const op = "validate"
	var errs []error

	// Every node needs a rule. There are no implicit terminal nodes.
	if _, ok := b.rules[START]; !ok {
		errs = append(errs, buildErr(op, START, fmt.Errorf("%w: no entry point", ErrMissingRoute)))
	}
	for _, name := range b.order {
		if _, ok := b.rules[name]; !ok {
			errs = append(errs, buildErr(op, name, ErrMissingRoute))
		}
	}

	reached := b.reachable()
	for _, name := range b.order {
		if reached[name] {
			continue
		}
		if cfg.allowUnreachable {
			if cfg.logger != nil {
				cfg.logger.Warn("unreachable node", "node", name)
			}
			continue
		}
		errs = append(errs, buildErr(op, name, ErrUnreachableNode))
	}

	for _, name := range b.fixedCycles() {
		errs = append(errs, buildErr(op, name, ErrCycle))
	}

	return errors.Join(errs...)
}

func (b *Builder[S]) reachable() map[string]bool {
	seen := map[string]bool{START: true}
	queue := []string{START}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		r, ok := b.rules[cur]
		if !ok {
			continue
		}
		for _, next := range r.successors() {
			if next == END || seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	return seen
}

// fixedCycles returns one representative node per cycle made only of fixed edges.
// Such a loop has no routing decision that could ever leave it.
func (b *Builder[S]) fixedCycles() []string {
	const (
		unvisited = iota
		onPath
		done
	)
	mark := make(map[string]int, len(b.order))
	var cycles []string

	for _, start := range append([]string{START}, b.order...) {
		if mark[start] != unvisited {
			continue
		}
		var path []string
		cur := start
		for {
			if mark[cur] == onPath {
				cycles = append(cycles, cur)
				break
			}
			if mark[cur] == done {
				break
			}
			mark[cur] = onPath
			path = append(path, cur)

			r, ok := b.rules[cur]
			if !ok || r.conditional() || r.to == END {
				break
			}
			cur = r.to
		}
		for _, n := range path {
			mark[n] = done
		}
	}
	return cycles
}

func (r rule[S]) successors() []string {
	if !r.conditional() {
		return []string{r.to}
	}
	out := make([]string, 0, len(r.targets))
	for _, to := range r.targets {
		out = append(out, to)
	}
	return out
}
