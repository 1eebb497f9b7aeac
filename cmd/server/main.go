package main

import (
	"context"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/accounts/api/handler"
	"github.com/fastygo/accounts/internal/config"
	"github.com/fastygo/accounts/internal/infrastructure/monitor"
	"github.com/fastygo/accounts/internal/infrastructure/outbox"
	pgInfra "github.com/fastygo/accounts/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/accounts/internal/infrastructure/redis"
	"github.com/fastygo/accounts/internal/metrics"
	"github.com/fastygo/accounts/internal/middleware"
	"github.com/fastygo/accounts/internal/router"
	"github.com/fastygo/accounts/internal/services"
	"github.com/fastygo/accounts/internal/services/lifecycle"
	"github.com/fastygo/accounts/pkg/httpcontext"
	"github.com/fastygo/accounts/pkg/logger"
	"github.com/fastygo/accounts/pkg/password"
	"github.com/fastygo/accounts/pkg/token"
	"github.com/fastygo/accounts/repository"
	"github.com/fastygo/accounts/repository/memory"
	"github.com/fastygo/accounts/repository/postgres"
	redisRepo "github.com/fastygo/accounts/repository/redis"
	authUC "github.com/fastygo/accounts/usecase/auth"
	usersUC "github.com/fastygo/accounts/usecase/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	userRepo, storeCheck := openStore(appCtx, cfg, manager, zapLogger)
	userRepo = metrics.InstrumentStore(userRepo, appMetrics)

	cache, cacheCheck, pending := openCache(cfg, manager, appMetrics, zapLogger)

	var outboxSize monitor.Sizer
	if pending != nil {
		outboxSize = pending
	}
	mon := monitor.New(storeCheck, cacheCheck, outboxSize, cfg.Context.MonitorInterval, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	if pending != nil {
		repair := services.NewRepairProcessor(pending, cache, mon, zapLogger, services.ProcessorConfig{
			Interval:   cfg.Outbox.SyncInterval,
			BatchSize:  cfg.Outbox.BatchSize,
			MaxRetries: cfg.Outbox.MaxRetry,
			MaxAge:     cfg.Cache.TTL,
		})
		metrics.RegisterOutboxDepth(prometheus.DefaultRegisterer, repair.Size)
		repair.Start()
		manager.Register("cache_repair", func(ctx context.Context) error {
			repair.Stop(ctx)
			return nil
		})
		cache = services.NewRepairingCache(cache, pending, zapLogger)
	}

	hasher, err := password.NewHasher(cfg.Password.Cost)
	if err != nil {
		zapLogger.Fatal("invalid password hashing cost", zap.Error(err))
	}
	tokens, err := token.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	if err != nil {
		zapLogger.Fatal("invalid jwt settings", zap.Error(err))
	}

	usersService := usersUC.New(userRepo, cache, hasher, cfg.Cache.TTL, zapLogger)
	if cfg.Cache.FlushOnStart {
		status := usersService.PurgeCache(appCtx)
		zapLogger.Info("cache purged on start", zap.Stringer("status", status))
	}
	authUseCase := authUC.New(usersService, userRepo, hasher, tokens, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:   apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger, tokens.TTL()),
		Users:  apiHandler.NewUserHandler(usersService, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(authUseCase, zapLogger)
	r := router.New(handlers, authMiddleware, router.Options{
		EnablePprof:   cfg.HTTP.EnablePprof,
		EnableMetrics: cfg.HTTP.EnableMetrics,
	})

	server := &fasthttp.Server{
		Handler:            r.Handler,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		Concurrency:        cfg.HTTP.MaxConn,
		Name:               cfg.AppName,
		MaxRequestBodySize: 1 << 20,
	}

	manager.Go("http_server", func() error {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	if err := manager.Wait(appCtx); err != nil {
		zapLogger.Error("server stopped unexpectedly", zap.Error(err))
	}
	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, zl *zap.Logger) (repository.UserRepository, monitor.Check) {
	if cfg.Store.Driver == config.DriverMemory {
		zl.Warn("using in-memory user store, data is lost on restart")
		return memory.NewUserRepository(), nil
	}

	if cfg.Migrations.Enabled {
		if err := pgInfra.RunMigrations(cfg.Database.URL, cfg.Migrations.Path, zl); err != nil {
			zl.Fatal("migrations failed", zap.Error(err))
		}
	}

	pool, err := pgInfra.NewPool(ctx, cfg.Database, zl)
	if err != nil {
		zl.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(context.Context) error {
		pgInfra.Close(pool, zl)
		return nil
	})
	return postgres.NewUserRepository(pool, cfg.Database.QueryTimeout, zl), pool.Ping
}

// openCache returns the cache and, for Redis with the outbox enabled, the
// outbox that records invalidations lost while Redis is down.
func openCache(cfg *config.Config, manager *lifecycle.Manager, m *metrics.Metrics, zl *zap.Logger) (repository.Cache, monitor.Check, *outbox.Store) {
	if cfg.Cache.Driver == config.DriverMemory {
		return memory.NewCache(0), nil, nil
	}

	client, err := redisInfra.NewClient(cfg.Redis, cfg.Cache.OpTimeout, zl)
	if err != nil {
		zl.Fatal("invalid redis settings", zap.Error(err))
	}
	manager.Register("redis", func(context.Context) error {
		return client.Close()
	})
	cache := redisRepo.NewCacheRepository(client, cfg.Cache.OpTimeout, zl, redisRepo.WithObserver(m))
	check := func(ctx context.Context) error { return client.Ping(ctx).Err() }

	if !cfg.Outbox.Enabled {
		return cache, check, nil
	}
	store, err := outbox.Open(cfg.Outbox.Path, "invalidations")
	if err != nil {
		zl.Fatal("failed to open outbox", zap.Error(err))
	}
	manager.Register("outbox", func(context.Context) error {
		return store.Close()
	})
	return cache, check, store
}
