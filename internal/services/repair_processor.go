package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/accounts/domain"
	"github.com/fastygo/accounts/internal/infrastructure/outbox"
	"github.com/fastygo/accounts/repository"
)

// CacheHealth abstracts the connection monitor functionality.
type CacheHealth interface {
	IsCacheOnline() bool
}

// Outbox is the durable queue of pending invalidations.
type Outbox interface {
	Enqueue(entry outbox.Entry) error
	GetBatch(limit int) ([]outbox.Entry, error)
	Remove(entry outbox.Entry) error
	Retry(entry outbox.Entry) error
	Size() (int, error)
	Cleanup(olderThan time.Time) (int, error)
}

// ProcessorConfig controls how frequently the outbox is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// MaxAge drops entries older than the cache TTL; their target has expired.
	MaxAge time.Duration
}

// RepairProcessor replays invalidations that failed while the cache was down.
// Only deletes are replayed: a stale Set could resurrect an old value.
type RepairProcessor struct {
	store   Outbox
	cache   repository.Cache
	monitor CacheHealth
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ProcessorConfig
	now     func() time.Time
}

func NewRepairProcessor(
	store Outbox,
	cache repository.Cache,
	monitor CacheHealth,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *RepairProcessor {
	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = repository.DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rp := &RepairProcessor{
		store:   store,
		cache:   cache,
		monitor: monitor,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
		now:     time.Now,
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = rp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if _, err := rp.Drain(ctx); err != nil {
			rp.logger.Error("outbox drain failed", zap.Error(err))
		}
	})

	return rp
}

// Start launches the cron scheduler.
func (rp *RepairProcessor) Start() {
	if rp == nil || rp.cron == nil {
		return
	}
	rp.cron.Start()
	rp.logger.Info("cache repair started", zap.Duration("interval", rp.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (rp *RepairProcessor) Stop(ctx context.Context) {
	if rp == nil || rp.cron == nil {
		return
	}
	stopCtx := rp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	rp.logger.Info("cache repair stopped")
}

// Drain replays one batch and returns how many entries were applied.
func (rp *RepairProcessor) Drain(ctx context.Context) (int, error) {
	if rp == nil || rp.store == nil {
		return 0, nil
	}
	if rp.monitor != nil && !rp.monitor.IsCacheOnline() {
		rp.logger.Debug("skipping outbox drain (cache offline)")
		return 0, nil
	}

	if dropped, err := rp.store.Cleanup(rp.now().Add(-rp.cfg.MaxAge)); err != nil {
		rp.logger.Warn("outbox cleanup failed", zap.Error(err))
	} else if dropped > 0 {
		rp.logger.Info("dropped expired outbox entries", zap.Int("count", dropped))
	}

	entries, err := rp.store.GetBatch(rp.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return applied, ctx.Err()
		}
		if rp.apply(ctx, entry) == domain.CacheOK {
			applied++
			if err := rp.store.Remove(entry); err != nil {
				rp.logger.Warn("failed to purge replayed outbox entry", zap.Error(err))
			}
			continue
		}

		if entry.Retries+1 >= rp.cfg.MaxRetries {
			rp.logger.Warn("dropping outbox entry (max retries reached)",
				zap.String("key", entry.Key),
				zap.Int("retries", entry.Retries+1))
			_ = rp.store.Remove(entry)
			continue
		}
		if err := rp.store.Retry(entry); err != nil {
			rp.logger.Error("failed to requeue outbox entry", zap.Error(err))
		}
	}
	return applied, nil
}

// Size returns the number of pending entries.
func (rp *RepairProcessor) Size() int {
	if rp == nil || rp.store == nil {
		return 0
	}
	size, err := rp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (rp *RepairProcessor) apply(ctx context.Context, entry outbox.Entry) domain.CacheStatus {
	if entry.Prefix {
		return rp.cache.InvalidatePrefix(ctx, entry.Key)
	}
	return rp.cache.Invalidate(ctx, entry.Key)
}
