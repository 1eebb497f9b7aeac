package repository

import (
	"context"
	"time"

	"github.com/fastygo/accounts/domain"
)

//go:generate mockgen -source=cache.go -destination=mocks/cache_mock.go -package=mocks Cache

// DefaultCacheTTL applies when a caller passes a non-positive ttl.
const DefaultCacheTTL = time.Hour

// Cache is a disposable key/value layer with per-key expiration. It never
// returns errors: failures surface as domain.CacheDegraded and are logged by
// the implementation.
type Cache interface {
	Get(ctx context.Context, key string) domain.CacheLookup
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) domain.CacheStatus
	Invalidate(ctx context.Context, key string) domain.CacheStatus
	InvalidatePrefix(ctx context.Context, prefix string) domain.CacheStatus
}
