package graph

import (
	"fmt"
	"sort"

	"github.com/aretw0/tendril/pkg/domain"
)

// Graph is a compiled, immutable workflow graph. Safe for concurrent use.
type Graph[S any] struct {
	order []string
	nodes map[string]Transform[S]
	rules map[string]rule[S]
}

// Node returns the transform declared for name.
func (g *Graph[S]) Node(name string) (Transform[S], bool) {
	fn, ok := g.nodes[name]
	return fn, ok
}

// Has reports whether name is a declared node.
func (g *Graph[S]) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Nodes returns declared node names in declaration order.
func (g *Graph[S]) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Next resolves the successor of from for the given state.
// Fixed edges ignore the state. Conditional edges run the router and map its
// key through the target map; an unmapped key yields a *domain.RouteError.
func (g *Graph[S]) Next(from string, state S) (string, error) {
	r, ok := g.rules[from]
	if !ok {
		return "", fmt.Errorf("%w: '%s'", ErrUnknownNode, from)
	}
	if !r.conditional() {
		return r.to, nil
	}
	key := r.router(state)
	to, ok := r.targets[key]
	if !ok {
		return "", &domain.RouteError{Node: from, Key: key}
	}
	return to, nil
}

// Topology describes the graph without its state type.
func (g *Graph[S]) Topology() domain.Topology {
	t := domain.Topology{Nodes: g.Nodes()}
	for _, from := range append([]string{START}, g.order...) {
		r, ok := g.rules[from]
		if !ok {
			continue
		}
		if !r.conditional() {
			t.Edges = append(t.Edges, domain.TopologyEdge{From: from, To: r.to})
			continue
		}
		keys := make([]string, 0, len(r.targets))
		for k := range r.targets {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.Edges = append(t.Edges, domain.TopologyEdge{
				From:        from,
				To:          r.targets[k],
				Label:       k,
				Conditional: true,
			})
		}
	}
	return t
}
