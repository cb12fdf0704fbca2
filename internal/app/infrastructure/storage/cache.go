package storage

import (
	"time"

	"github.com/maypok86/otter/v2"
)

// Cache is a small in-memory TTL cache with access-based expiry. The session
// keeps per-channel room and user state in one of these so stale entries for
// parted channels age out on their own.
type Cache[T any] struct {
	outer *otter.Cache[string, T]
}

func NewCache[T any](capacity int, ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		outer: otter.Must(&otter.Options[string, T]{
			InitialCapacity:  capacity,
			ExpiryCalculator: otter.ExpiryAccessing[string, T](ttl),
		}),
	}
}

func (c *Cache[T]) Set(key string, val T) {
	c.outer.Set(key, val)
}

func (c *Cache[T]) Get(key string) (T, bool) {
	return c.outer.GetIfPresent(key)
}

func (c *Cache[T]) Delete(key string) {
	c.outer.Invalidate(key)
}

func (c *Cache[T]) Clear() {
	c.outer.InvalidateAll()
}
