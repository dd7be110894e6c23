/*
Package domain contains the core domain models shared by the Tendril engine,
its stores and its adapters.

It is kept free of I/O and of any knowledge about concrete persistence
backends, following Hexagonal Architecture principles.

# Key Entities

  - Checkpoint: The persisted snapshot of a session (encoded state, cursor, status).
  - RunResult: The outcome of a single invocation (final state, status, pause point).
  - LifecycleHooks: Callbacks fired by the engine for observability.
  - Errors: Run-time sentinels and typed errors (NodeExecutionError, RouteError, ...).
*/
package domain
