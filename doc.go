/*
Package tendril runs directed graphs of named steps over a shared state value.

A graph is assembled with a generic builder, validated once at Compile, and then
executed by an Engine that persists a checkpoint keyed by session ID after every
step. Runs can pause before designated nodes so an operator can inspect or edit
the state before resuming.

# Concept

Each node is a Go function that receives the current state and returns the next one.
Routing is either fixed (a -> b) or conditional, where a router function maps the
state to a key and the key is looked up in a target map. The engine owns the cursor;
nodes never see it.

# Usage

	b := graph.NewBuilder[Chat]()
	_ = b.AddNode("classify", classify)
	_ = b.AddNode("respond", respond)
	_ = b.SetEntryPoint("classify")
	_ = b.AddEdge("classify", "respond")
	_ = b.SetFinishPoint("respond")
	g, err := b.Compile()
	if err != nil {
		log.Fatal(err)
	}

	eng, err := tendril.New(g, tendril.WithInterruptBefore("respond"))
	if err != nil {
		log.Fatal(err)
	}

	res, _ := eng.Run(ctx, "session-123", Chat{Input: "hello"})
	if res.Status == tendril.StatusPaused {
		// Inspect or edit, then continue where the run stopped.
		res, _ = eng.Run(ctx, "session-123", Chat{}, tendril.Resume())
	}

Checkpoints go to an in-memory store unless WithStore is given. The pkg/adapters
tree ships file, redis and sqlite stores, and pkg/persistence/middleware adds
encryption and metrics around any of them.
*/
package tendril
