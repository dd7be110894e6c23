/*
Package graph defines and validates workflow graphs.

A graph is assembled with a Builder and frozen by Compile. Every node, including
the START sentinel, has exactly one outgoing routing rule: either a fixed edge or
a conditional edge whose router yields a key looked up in a declared target map.

	b := graph.NewBuilder[State]()
	_ = b.AddNode("classify", classify)
	_ = b.AddNode("respond", respond)
	_ = b.SetEntryPoint("classify")
	_ = b.AddConditionalEdge("classify", route, map[string]string{
		"respond": "respond",
		"done":    graph.END,
	})
	_ = b.SetFinishPoint("respond")
	g, err := b.Compile()
*/
package graph
