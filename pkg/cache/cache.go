// Package cache provides small key/value stores with TTL used for
// short-lived resolver state, such as remembering that a repository has
// no copy of a path.
//
// Backends:
//   - [FileCache]: entries as JSON files under a directory (single host)
//   - [RedisCache]: a shared Redis instance (several build hosts)
//   - [NullCache]: stores nothing
//
// [Prefixed] namespaces any backend, typically one namespace per repository.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value and true on a hit. Expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A ttl of zero keeps the entry until deleted.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
