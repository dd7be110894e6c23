package graph

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateNode   = errors.New("node already declared")
	ErrInvalidNode     = errors.New("invalid node name")
	ErrUnknownNode     = errors.New("unknown node")
	ErrDuplicateEdge   = errors.New("node already has an outgoing rule")
	ErrInvalidEdge     = errors.New("invalid edge")
	ErrMissingRoute    = errors.New("node has no outgoing rule")
	ErrUnreachableNode = errors.New("node is unreachable from start")
	ErrCycle           = errors.New("cycle of fixed edges never reaches end")
	ErrAlreadyCompiled = errors.New("builder already compiled")
)

// BuildError reports a problem found while assembling or validating a graph.
type BuildError struct {
	Op   string // "add_node", "add_edge", "add_conditional_edge", "validate"
	Node string
	Err  error
}

func (e *BuildError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("graph %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("graph %s '%s': %v", e.Op, e.Node, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func buildErr(op, node string, err error) error {
	return &BuildError{Op: op, Node: node, Err: err}
}
