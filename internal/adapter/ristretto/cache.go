// Package ristretto implements the cache port using dgraph-io/ristretto as
// the in-process L1 tier.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache holds formatted transcripts and thread-ref bindings, costed by value
// size so a few very long transcripts cannot crowd out everything else.
type Cache struct {
	store *ristretto.Cache[string, []byte]
}

// New creates an L1 cache bounded to maxCostBytes of cached values.
func New(maxCostBytes int64) (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{store: store}, nil
}

// Get retrieves a cached value.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.store.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a value with the given TTL. Ristretto applies writes
// asynchronously; waiting here gives transcripts read-your-write visibility,
// so the request that rendered a transcript leaves it servable.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.store.SetWithTTL(key, value, int64(len(value)), ttl)
	c.store.Wait()
	return nil
}

// Delete removes a cached value.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.store.Del(key)
	return nil
}

// Close releases the cache's resources.
func (c *Cache) Close() {
	c.store.Close()
}
