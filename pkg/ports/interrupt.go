package ports

// InterruptController is consulted before each node.
// Implementations must be pure: the answer depends only on the node name.
type InterruptController interface {
	ShouldPause(node string) bool
}
