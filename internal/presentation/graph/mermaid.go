// Package graph renders graph topologies as Mermaid flowcharts.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

const (
	startID = "__start__"
	endID   = "__end__"
)

// Overlay carries session data to highlight on the chart.
type Overlay struct {
	// Gated nodes are drawn as input shapes, since a human approves them.
	Gated []string
	// Cursor is the node the session will run next.
	Cursor string
}

// GenerateMermaid produces Mermaid flowchart syntax for a topology.
// Shapes:
//   - START and END: ((Circle))
//   - Gated node: [/Parallelogram/]
//   - Default: [Rectangle]
//
// Conditional edges are dashed and labelled with their router key.
func GenerateMermaid(topo domain.Topology, overlay *Overlay) string {
	gated := make(map[string]bool)
	if overlay != nil {
		for _, n := range overlay.Gated {
			gated[n] = true
		}
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	fmt.Fprintf(&sb, "    %s((\"START\"))\n", sanitizeMermaidID(startID))

	for _, node := range topo.Nodes {
		opener, closer := "[", "]"
		if gated[node] {
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(node), opener, node, closer)
	}
	fmt.Fprintf(&sb, "    %s((\"END\"))\n", sanitizeMermaidID(endID))

	for _, e := range topo.Edges {
		from, to := sanitizeMermaidID(e.From), sanitizeMermaidID(e.To)
		if e.Conditional {
			label := strings.ReplaceAll(e.Label, "\"", "'")
			fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", from, label, to)
			continue
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
	}

	if overlay != nil && overlay.Cursor != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on both light and dark themes.
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.Cursor))
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
