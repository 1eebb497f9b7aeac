package redis

import (
	"context"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/accounts/internal/config"
)

// NewClient creates the shared Redis client. An unreachable server is logged
// and tolerated: the cache is optional and reconnects on its own.
func NewClient(cfg config.RedisConfig, opTimeout time.Duration, logger *zap.Logger) (*goRedis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := goRedis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opTimeout > 0 {
		opts.DialTimeout = opTimeout
		opts.ReadTimeout = opTimeout
		opts.WriteTimeout = opTimeout
		opts.PoolTimeout = opTimeout
	}
	opts.MaxRetries = 1

	client := goRedis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup, serving from store", zap.String("addr", opts.Addr), zap.Error(err))
		return client, nil
	}

	logger.Info("connected to redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return client, nil
}
