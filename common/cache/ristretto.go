// Package cache wraps ristretto behind the small surface the repositories
// need: a TTL'd read-through cache for records that no longer change.
package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// ReadCache is a local TTL cache. All methods are safe on a nil receiver,
// so callers can treat "no cache" as a cache that never hits.
type ReadCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewReadCache creates a cache holding up to maxEntries items, each
// expiring after ttl.
func NewReadCache(maxEntries int64, ttl time.Duration) (*ReadCache, error) {
	// Ristretto wants ~10x counters per tracked item for its admission
	// policy to work.
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	return &ReadCache{
		cache: cache,
		ttl:   ttl,
	}, nil
}

// Set stores value under key with the cache's TTL. Admission is
// best-effort; a false return just means ristretto dropped the write.
func (c *ReadCache) Set(key string, value interface{}) bool {
	if c == nil {
		return false
	}
	return c.cache.SetWithTTL(key, value, 1, c.ttl)
}

func (c *ReadCache) Get(key string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *ReadCache) Delete(key string) {
	if c == nil {
		return
	}
	c.cache.Del(key)
}

// Wait blocks until buffered writes are applied. Only tests need this;
// ristretto applies Sets asynchronously.
func (c *ReadCache) Wait() {
	if c == nil {
		return
	}
	c.cache.Wait()
}

func (c *ReadCache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
