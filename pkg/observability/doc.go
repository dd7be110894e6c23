/*
Package observability turns engine lifecycle events into metrics and logs.

Both Metrics.Hooks and LogHooks return domain.LifecycleHooks, which can be
merged and passed to the engine with tendril.WithLifecycleHooks.
*/
package observability
