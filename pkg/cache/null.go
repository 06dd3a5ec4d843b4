package cache

import (
	"context"
	"fmt"
	"time"
)

// NullCache remembers nothing: every lookup is a miss, so every
// repository is asked again. The resolver falls back to it when neither
// Redis nor the cache directory can hold remembered misses.
type NullCache struct {
	reason error
}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() *NullCache {
	return &NullCache{}
}

// Disabled returns a [NullCache] standing in for a backend that could not
// be opened. reason is reported by [Describe].
func Disabled(reason error) *NullCache {
	return &NullCache{reason: reason}
}

// Reason returns why remembering is off, nil when no backend failed.
func (c *NullCache) Reason() error { return c.reason }

func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

func (c *NullCache) Close() error {
	return nil
}

// Describe names the backend behind c for status output, looking through
// [Prefixed] views.
func Describe(c Cache) string {
	switch c := c.(type) {
	case nil:
		return "disabled"
	case *Prefixed:
		return Describe(c.inner)
	case *FileCache:
		return "files in " + c.Dir()
	case *RedisCache:
		return "redis " + c.client.Options().Addr
	case *NullCache:
		if c.reason != nil {
			return "disabled (" + c.reason.Error() + ")"
		}
		return "disabled"
	default:
		return fmt.Sprintf("%T", c)
	}
}

var _ Cache = (*NullCache)(nil)
