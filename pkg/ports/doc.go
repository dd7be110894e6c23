/*
Package ports defines the driven ports (interfaces) for the Tendril engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various storage backends, lock providers and gates.

# Key Interfaces

  - CheckpointStore: Persists and loads session checkpoints, keyed by session ID.
  - DistributedLocker: Provides distributed locking for concurrent session access.
  - InterruptController: Decides whether execution pauses before a node.
  - Engine: The driving surface consumed by the HTTP and MCP adapters.
*/
package ports
