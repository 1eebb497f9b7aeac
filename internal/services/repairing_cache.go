package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/accounts/domain"
	"github.com/fastygo/accounts/internal/infrastructure/outbox"
	"github.com/fastygo/accounts/repository"
)

// RepairingCache records every write-path cache mutation that degraded so the
// entry it targeted can be invalidated once the cache is back. A failed Set is
// recorded as an invalidation of the same key. Read-path refills go through
// Refill and are never recorded.
type RepairingCache struct {
	repository.Cache
	outbox Outbox
	logger *zap.Logger
}

var _ repository.Cache = (*RepairingCache)(nil)

func NewRepairingCache(cache repository.Cache, store Outbox, logger *zap.Logger) *RepairingCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepairingCache{Cache: cache, outbox: store, logger: logger}
}

func (c *RepairingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) domain.CacheStatus {
	status := c.Cache.Set(ctx, key, value, ttl)
	if status == domain.CacheDegraded {
		c.record(outbox.Entry{Key: key})
	}
	return status
}

// Refill caches a value read from the store. A failed refill leaves nothing
// stale, so it is not recorded.
func (c *RepairingCache) Refill(ctx context.Context, key string, value []byte, ttl time.Duration) domain.CacheStatus {
	return c.Cache.Set(ctx, key, value, ttl)
}

func (c *RepairingCache) Invalidate(ctx context.Context, key string) domain.CacheStatus {
	status := c.Cache.Invalidate(ctx, key)
	if status == domain.CacheDegraded {
		c.record(outbox.Entry{Key: key})
	}
	return status
}

func (c *RepairingCache) InvalidatePrefix(ctx context.Context, prefix string) domain.CacheStatus {
	status := c.Cache.InvalidatePrefix(ctx, prefix)
	if status == domain.CacheDegraded {
		c.record(outbox.Entry{Key: prefix, Prefix: true})
	}
	return status
}

func (c *RepairingCache) record(entry outbox.Entry) {
	if c.outbox == nil {
		return
	}
	if err := c.outbox.Enqueue(entry); err != nil {
		c.logger.Error("could not record pending invalidation",
			zap.String("key", entry.Key),
			zap.Error(err))
		return
	}
	c.logger.Info("invalidation deferred until cache recovers", zap.String("key", entry.Key))
}
