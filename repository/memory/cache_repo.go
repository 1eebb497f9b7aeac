package memory

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/fastygo/accounts/domain"
	"github.com/fastygo/accounts/repository"
)

// Cache is an in-process TTL cache. It is used when no Redis is configured and
// in tests; it never degrades.
type Cache struct {
	store *gocache.Cache
}

var _ repository.Cache = (*Cache)(nil)

func NewCache(cleanupInterval time.Duration) *Cache {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &Cache{store: gocache.New(repository.DefaultCacheTTL, cleanupInterval)}
}

func (c *Cache) Get(_ context.Context, key string) domain.CacheLookup {
	value, ok := c.store.Get(key)
	if !ok {
		return domain.CacheMissed()
	}
	payload, ok := value.([]byte)
	if !ok {
		return domain.CacheMissed()
	}
	return domain.CacheHit(append([]byte(nil), payload...))
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) domain.CacheStatus {
	if ttl <= 0 {
		ttl = repository.DefaultCacheTTL
	}
	c.store.Set(key, append([]byte(nil), value...), ttl)
	return domain.CacheOK
}

func (c *Cache) Invalidate(_ context.Context, key string) domain.CacheStatus {
	c.store.Delete(key)
	return domain.CacheOK
}

func (c *Cache) InvalidatePrefix(_ context.Context, prefix string) domain.CacheStatus {
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
	return domain.CacheOK
}

// Len reports the number of stored entries, including expired ones not yet evicted.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}
