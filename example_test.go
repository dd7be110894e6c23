package tendril_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/pkg/graph"
)

type draft struct {
	Text     string
	Approved bool
}

// ExampleNew builds a two-step graph, pauses for approval and resumes.
func ExampleNew() {
	b := graph.NewBuilder[draft]()
	_ = b.AddNode("write", func(_ context.Context, d draft) (draft, error) {
		d.Text = strings.ToUpper(d.Text)
		return d, nil
	})
	_ = b.AddNode("publish", func(_ context.Context, d draft) (draft, error) {
		d.Approved = true
		return d, nil
	})
	_ = b.SetEntryPoint("write")
	_ = b.AddEdge("write", "publish")
	_ = b.SetFinishPoint("publish")

	g, err := b.Compile()
	if err != nil {
		log.Fatal(err)
	}

	eng, err := tendril.New(g, tendril.WithInterruptBefore("publish"))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	res, err := eng.Run(ctx, "doc-1", draft{Text: "hello"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Status, res.PausedBefore, res.State.Text)

	res, err = eng.Run(ctx, "doc-1", draft{}, tendril.Resume())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Status, res.State.Approved)

	// Output:
	// paused publish HELLO
	// completed true
}
