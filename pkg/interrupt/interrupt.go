// Package interrupt provides gates that pause a run before selected nodes.
package interrupt

import (
	"sort"

	"github.com/aretw0/tendril/pkg/ports"
)

// Gate pauses before a fixed set of nodes. The zero value never pauses.
type Gate struct {
	nodes map[string]struct{}
}

var _ ports.InterruptController = Gate{}

// Before builds a gate that pauses before each of the given nodes.
func Before(nodes ...string) Gate {
	g := Gate{nodes: make(map[string]struct{}, len(nodes))}
	for _, n := range nodes {
		g.nodes[n] = struct{}{}
	}
	return g
}

// Never is a gate that lets every node run.
var Never = Gate{}

// ShouldPause reports whether execution must stop before node.
func (g Gate) ShouldPause(node string) bool {
	_, ok := g.nodes[node]
	return ok
}

// Nodes returns the gated node names, sorted.
func (g Gate) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
