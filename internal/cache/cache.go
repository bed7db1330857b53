// Package cache provides a small key-value store with TTL semantics used
// for rate-limit counters and response memoization. Two backends exist:
// an in-process map for single-node deployments and Redis for shared
// state across replicas.
package cache

import (
	"context"
	"time"
)

// Cache is the backend contract. Get returns domain.ErrCacheMiss for
// absent or expired keys. Incr atomically increments a counter key,
// creating it with the given TTL on first increment; the TTL is not
// extended on subsequent increments, which gives fixed-window semantics.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
