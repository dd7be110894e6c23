package domain

// Topology is a type-erased description of a compiled graph.
// Visualizers and adapters consume it without knowing the state type.
type Topology struct {
	Nodes []string       `json:"nodes"`
	Edges []TopologyEdge `json:"edges"`
}

// TopologyEdge is a single resolved transition.
// Conditional edges are expanded into one entry per mapped key.
type TopologyEdge struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Label       string `json:"label,omitempty"`
	Conditional bool   `json:"conditional,omitempty"`
}

// Successors returns every target reachable in one step from node.
func (t Topology) Successors(node string) []string {
	var out []string
	for _, e := range t.Edges {
		if e.From == node {
			out = append(out, e.To)
		}
	}
	return out
}
