package chatbot

import (
	"time"

	"github.com/aretw0/tendril/pkg/graph"
)

// Node names.
const (
	NodeClassify  = "classify"
	NodeRespond   = "respond"
	NodeSummarize = "summarize"
)

// Router keys out of NodeClassify.
const (
	RouteRespond   = "respond"
	RouteSummarize = "summarize"
)

// DefaultInterrupts gates every reply behind an approval.
var DefaultInterrupts = []string{NodeRespond}

// NewGraph compiles the chat flow:
//
//	START -> classify -(respond)-> respond -> END
//	                  -(summarize)-> summarize -> END
//
// A nil clock uses time.Now.
func NewGraph(clock Clock) (*graph.Graph[ChatState], error) {
	if clock == nil {
		clock = time.Now
	}

	b := graph.NewBuilder[ChatState]()
	steps := []func() error{
		func() error { return b.AddNode(NodeClassify, Classify(clock)) },
		func() error { return b.AddNode(NodeRespond, Respond(clock)) },
		func() error { return b.AddNode(NodeSummarize, Summarize(clock)) },
		func() error { return b.SetEntryPoint(NodeClassify) },
		func() error {
			return b.AddConditionalEdge(NodeClassify, Route, map[string]string{
				RouteRespond:   NodeRespond,
				RouteSummarize: NodeSummarize,
			})
		},
		func() error { return b.SetFinishPoint(NodeRespond) },
		func() error { return b.SetFinishPoint(NodeSummarize) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return b.Compile()
}
