package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/accounts/domain"
	"github.com/fastygo/accounts/repository"
)

const (
	defaultOpTimeout = 500 * time.Millisecond
	scanBatch        = 200
)

// Observer receives the outcome of every cache operation. It is optional.
type Observer interface {
	ObserveCache(op string, status domain.CacheStatus)
}

type cacheRepository struct {
	client    redislib.UniversalClient
	opTimeout time.Duration
	logger    *zap.Logger
	observer  Observer

	// disconnected is set after a network failure; the next operation pings first.
	disconnected atomic.Bool
}

// Option customises the Redis cache.
type Option func(*cacheRepository)

// WithObserver reports operation outcomes, typically to metrics.
func WithObserver(o Observer) Option {
	return func(r *cacheRepository) { r.observer = o }
}

// NewCacheRepository wraps a shared Redis client as a fail-open cache. Every
// operation runs under opTimeout; an expired timeout is reported as degraded.
func NewCacheRepository(client redislib.UniversalClient, opTimeout time.Duration, logger *zap.Logger, opts ...Option) repository.Cache {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &cacheRepository{
		client:    client,
		opTimeout: opTimeout,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *cacheRepository) Get(ctx context.Context, key string) domain.CacheLookup {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.ensureConnected(ctx); err != nil {
		return r.degradedRead("get", key, err)
	}

	payload, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redislib.Nil):
		r.observe("get", domain.CacheMiss)
		return domain.CacheMissed()
	case err != nil:
		return r.degradedRead("get", key, err)
	}
	r.observe("get", domain.CacheOK)
	return domain.CacheHit(payload)
}

func (r *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) domain.CacheStatus {
	if ttl <= 0 {
		ttl = repository.DefaultCacheTTL
	}
	return r.write(ctx, "set", key, func(ctx context.Context) error {
		return r.client.Set(ctx, key, value, ttl).Err()
	})
}

func (r *cacheRepository) Invalidate(ctx context.Context, key string) domain.CacheStatus {
	return r.write(ctx, "invalidate", key, func(ctx context.Context) error {
		return r.client.Del(ctx, key).Err()
	})
}

// InvalidatePrefix walks the keyspace with SCAN so a large cache never blocks the server.
func (r *cacheRepository) InvalidatePrefix(ctx context.Context, prefix string) domain.CacheStatus {
	return r.write(ctx, "invalidate_prefix", prefix, func(ctx context.Context) error {
		var cursor uint64
		for {
			keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
			if err != nil {
				return err
			}
			if len(keys) > 0 {
				if err := r.client.Del(ctx, keys...).Err(); err != nil {
					return err
				}
			}
			if next == 0 {
				return nil
			}
			cursor = next
		}
	})
}

func (r *cacheRepository) write(ctx context.Context, op, key string, fn func(context.Context) error) domain.CacheStatus {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	err := r.ensureConnected(ctx)
	if err == nil {
		err = fn(ctx)
	}
	if err != nil {
		r.absorb(op, key, err)
		r.observe(op, domain.CacheDegraded)
		return domain.CacheDegraded
	}
	r.observe(op, domain.CacheOK)
	return domain.CacheOK
}

// ensureConnected pings only after a previous failure, so the healthy path costs nothing extra.
func (r *cacheRepository) ensureConnected(ctx context.Context) error {
	if !r.disconnected.Load() {
		return nil
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return err
	}
	if r.disconnected.CompareAndSwap(true, false) {
		r.logger.Info("redis cache reconnected")
	}
	return nil
}

func (r *cacheRepository) degradedRead(op, key string, err error) domain.CacheLookup {
	r.absorb(op, key, err)
	r.observe(op, domain.CacheDegraded)
	return domain.CacheFailed(err)
}

func (r *cacheRepository) absorb(op, key string, err error) {
	if !errors.Is(err, context.Canceled) && r.disconnected.CompareAndSwap(false, true) {
		r.logger.Warn("redis cache marked disconnected", zap.Error(err))
	}
	r.logger.Warn("cache operation degraded",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err))
}

func (r *cacheRepository) observe(op string, status domain.CacheStatus) {
	if r.observer != nil {
		r.observer.ObserveCache(op, status)
	}
}
