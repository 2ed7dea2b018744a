package store

import (
	"context"
	"log/slog"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedLoader memoizes successful loads of the configured resource types for
// a short TTL. Misses and errors are never cached.
type CachedLoader struct {
	next  Store
	cache *expirable.LRU[string, *Record]
	types mapset.Set[ResourceType]
}

func NewCachedLoader(next Store, size int, ttl time.Duration, types ...ResourceType) *CachedLoader {
	return &CachedLoader{
		next:  next,
		cache: expirable.NewLRU[string, *Record](size, nil, ttl),
		types: mapset.NewSet(types...),
	}
}

func (c *CachedLoader) cacheable(q Query) bool {
	return c.types.Cardinality() == 0 || c.types.Contains(q.ResourceType)
}

func (c *CachedLoader) Load(ctx context.Context, q Query) (*Record, error) {
	if !c.cacheable(q) {
		return c.next.Load(ctx, q)
	}

	key := q.key()
	if rec, ok := c.cache.Get(key); ok {
		slog.Debug("record cache hit", "key", key)
		return rec, nil
	}

	rec, err := c.next.Load(ctx, q)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, rec)
	return rec, nil
}

func (c *CachedLoader) Purge() {
	c.cache.Purge()
}

func (c *CachedLoader) Close() error {
	c.cache.Purge()
	return c.next.Close()
}

var _ Store = (*CachedLoader)(nil)
