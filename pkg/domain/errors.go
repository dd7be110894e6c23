package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrEmptySessionID is returned when an operation is given a blank session ID.
var ErrEmptySessionID = errors.New("session id cannot be empty")

// ErrNoCheckpoint is returned when a resume is requested for a session with nothing to resume.
var ErrNoCheckpoint = errors.New("no checkpoint to resume")

// ErrUnmappedRoute is returned when a router yields a key absent from its target map.
var ErrUnmappedRoute = errors.New("router returned unmapped key")

// ErrStepLimit is returned when a single invocation exceeds the configured step budget.
var ErrStepLimit = errors.New("step limit exceeded")

// ErrStateDecode is returned when a stored state cannot be decoded into the graph's state type.
var ErrStateDecode = errors.New("failed to decode checkpoint state")

// NodeExecutionError wraps any failure raised by a node transform.
type NodeExecutionError struct {
	Node  string
	Cause error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node '%s' failed: %v", e.Node, e.Cause)
}

func (e *NodeExecutionError) Unwrap() error {
	return e.Cause
}

// RouteError reports a routing decision that could not be resolved.
type RouteError struct {
	Node string
	Key  string
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("route from '%s': key '%s' is not in the target map", e.Node, e.Key)
}

func (e *RouteError) Unwrap() error {
	return ErrUnmappedRoute
}

// CheckpointStoreError reports a persistence failure. The step it belongs to is not committed.
type CheckpointStoreError struct {
	Op        string // "load", "save", "delete" or "list"
	SessionID string
	Err       error
}

func (e *CheckpointStoreError) Error() string {
	return fmt.Sprintf("checkpoint %s for session '%s': %v", e.Op, e.SessionID, e.Err)
}

func (e *CheckpointStoreError) Unwrap() error {
	return e.Err
}
