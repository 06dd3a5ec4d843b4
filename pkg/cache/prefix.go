package cache

import (
	"context"
	"time"
)

// Prefixed wraps a Cache and prepends a namespace to every key, so several
// users can share one backend without colliding.
//
// Example usage:
//
//	misses := cache.NewPrefixed(shared, "miss:central:")
type Prefixed struct {
	inner  Cache
	prefix string
}

// NewPrefixed creates a namespaced view of inner. A nil inner yields a
// [NullCache] view.
func NewPrefixed(inner Cache, prefix string) *Prefixed {
	if inner == nil {
		inner = NewNullCache()
	}
	return &Prefixed{inner: inner, prefix: prefix}
}

// Prefix returns the namespace.
func (p *Prefixed) Prefix() string { return p.prefix }

// Get retrieves a namespaced value.
func (p *Prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

// Set stores a namespaced value.
func (p *Prefixed) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return p.inner.Set(ctx, p.prefix+key, data, ttl)
}

// Delete removes a namespaced value.
func (p *Prefixed) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}

// Close does not close the shared backend; its owner does.
func (p *Prefixed) Close() error { return nil }

// Ensure Prefixed implements Cache.
var _ Cache = (*Prefixed)(nil)
