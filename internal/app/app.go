// Package app wires the service together: configuration, storage, caches,
// the routing and assignment engines, the HTTP surface, and the prewarm
// scheduler.
package app

import (
	"context"

	"github.com/gorilla/mux"

	"ticketrouter/internal/assignment"
	"ticketrouter/internal/common/cache"
	"ticketrouter/internal/common/logging"
	"ticketrouter/internal/config"
	"ticketrouter/internal/directory"
	"ticketrouter/internal/handlers"
	"ticketrouter/internal/redis"
	"ticketrouter/internal/routing"
	"ticketrouter/internal/rules"
	"ticketrouter/internal/scheduler"
	"ticketrouter/internal/server"
	"ticketrouter/internal/storage"
)

// App holds the assembled service.
type App struct {
	Config    *config.Config
	Store     storage.Storage
	Rules     *rules.Manager
	Router    *routing.Engine
	Assigner  *assignment.Engine
	Server    *server.Server
	Scheduler *scheduler.Scheduler

	redisClient *redis.Client
	logger      logging.Logger
}

// New assembles the service from configuration. It connects storage and
// Redis, installs the default rules on a fresh store, and registers the HTTP
// routes, but does not start serving.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Store:  store,
		logger: logger,
	}

	sharedCache, err := a.buildSharedCache(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a.Rules = rules.NewManager(store, logger)
	if err := a.Rules.EnsureDefaultRules(ctx); err != nil {
		a.close()
		return nil, err
	}

	a.Router = routing.NewEngine(a.Rules, a.Rules, routing.EngineConfig{
		CacheTTL: cfg.RuleCacheTTL,
		Logger:   logger,
	})

	dir := directory.NewGuarded(store, logger)
	a.Assigner = assignment.NewEngine(dir, dir, assignment.EngineConfig{
		CacheTTL: cfg.MetricsCacheTTL,
		Logger:   logger,
	})

	handler := handlers.New(a.Rules, a.Router, a.Assigner, store, sharedCache, logger).
		WithDefaultStrategy(assignment.StrategyType(cfg.DefaultStrategy))
	muxRouter := mux.NewRouter()
	handler.RegisterRoutes(muxRouter)

	a.Server = server.New(cfg.Port, muxRouter, logger)
	a.Scheduler = scheduler.New(a.Assigner, sharedCache, cfg.PrewarmTeams, cfg.MetricsCacheTTL, logger)

	return a, nil
}

// buildSharedCache creates the cross-instance cache: Redis when enabled,
// otherwise process-local.
func (a *App) buildSharedCache(ctx context.Context) (cache.Cache, error) {
	cacheConfig := cache.DefaultConfig()
	cacheConfig.TTL = a.Config.MetricsCacheTTL

	if a.Config.RedisEnabled {
		client, err := redis.NewClient(ctx, redis.Config{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
			DB:       a.Config.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		a.redisClient = client
		cacheConfig.Type = cache.TypeRedis
		cacheConfig.RedisClient = client.Raw()
	}

	return cache.New(cacheConfig)
}

func (a *App) close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("failed to close redis client", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.logger.Error("failed to close storage", err)
		}
	}
}
