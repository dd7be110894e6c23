// Package middleware decorates a CheckpointStore with cross-cutting behaviour.
package middleware

import "github.com/aretw0/tendril/pkg/ports"

// Middleware wraps a CheckpointStore to add behaviour.
type Middleware func(ports.CheckpointStore) ports.CheckpointStore

// Chain composes middlewares so the first one is the outermost.
//
//	Chain(metrics, encryption)(store) == metrics(encryption(store))
func Chain(mws ...Middleware) Middleware {
	return func(next ports.CheckpointStore) ports.CheckpointStore {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
