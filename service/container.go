package service

import (
	"context"

	"github.com/saiset-co/sai-campaigns/api"
	"github.com/saiset-co/sai-campaigns/cache"
	"github.com/saiset-co/sai-campaigns/cron"
	"github.com/saiset-co/sai-campaigns/database"
	"github.com/saiset-co/sai-campaigns/health"
	"github.com/saiset-co/sai-campaigns/logger"
	"github.com/saiset-co/sai-campaigns/metrics"
	"github.com/saiset-co/sai-campaigns/middleware"
	"github.com/saiset-co/sai-campaigns/server"
	"github.com/saiset-co/sai-campaigns/transient"
	"github.com/saiset-co/sai-campaigns/types"
)

// Container holds every component of a running service. Health and Cron are
// nil when disabled in config.
type Container struct {
	Config      types.ConfigManager
	Logger      types.LoggerManager
	Metrics     types.MetricsManager
	Cache       types.ProcessCache
	Store       types.DurableStore
	Transient   *transient.Store
	Middlewares *middleware.Manager
	Router      *server.Router
	HTTPServer  *server.FastHTTPServer
	Health      *health.Manager
	Cron        *cron.Manager
}

// NewStorage builds only the logger, metrics and the cache-aside stack. Used by
// CLI commands that read data without serving HTTP.
func NewStorage(ctx context.Context, configManager types.ConfigManager) (*Container, error) {
	loggerManager, err := logger.NewManager(configManager)
	if err != nil {
		return nil, types.WrapError(err, "failed to register logger")
	}

	metricsManager, err := metrics.NewMetricsManager(ctx, configManager, loggerManager)
	if err != nil {
		return nil, types.WrapError(err, "failed to register metrics manager")
	}

	cacheManager, err := cache.NewCacheManager(ctx, configManager, loggerManager, metricsManager)
	if err != nil {
		return nil, types.WrapError(err, "failed to register cache")
	}

	store, err := database.NewStore(ctx, configManager, loggerManager, metricsManager)
	if err != nil {
		return nil, types.WrapError(err, "failed to register store")
	}

	return &Container{
		Config:    configManager,
		Logger:    loggerManager,
		Metrics:   metricsManager,
		Cache:     cacheManager,
		Store:     store,
		Transient: transient.New(cacheManager, store, loggerManager),
	}, nil
}

func NewContainer(ctx context.Context, configManager types.ConfigManager) (*Container, error) {
	container, err := NewStorage(ctx, configManager)
	if err != nil {
		return nil, err
	}

	_config := configManager.GetConfig()

	container.Router = server.NewRouter()

	container.Middlewares = middleware.NewManager(configManager, container.Logger, container.Metrics)
	if err := container.Middlewares.RegisterMiddlewares(); err != nil {
		return nil, types.WrapError(err, "failed to register middlewares")
	}

	api.NewHandler(configManager, container.Transient, container.Logger, container.Metrics).RegisterRoutes(container.Router)

	if _config.Metrics != nil && _config.Metrics.Enabled {
		container.Metrics.RegisterRoutes(container.Router)
	}

	if _config.Health != nil && _config.Health.Enabled {
		container.Health = health.NewManager(ctx, configManager, container.Logger)
		container.Health.RegisterChecker("cache", health.PingChecker(_config.Cache.Type, container.Cache))
		container.Health.RegisterChecker("store", health.PingChecker(_config.Store.Type, container.Store))
		container.Health.RegisterRoutes(container.Router)
	}

	if _config.Cron != nil && _config.Cron.Enabled {
		container.Cron, err = cron.NewManager(ctx, configManager, container.Logger, container.Metrics)
		if err != nil {
			return nil, types.WrapError(err, "failed to register cron manager")
		}

		if err := container.Cron.ScheduleMaintenance(container.maintenanceTargets()); err != nil {
			return nil, types.WrapError(err, "failed to schedule maintenance")
		}
	}

	container.HTTPServer, err = server.NewHTTPServer(configManager, container.Logger, container.Middlewares, container.Router)
	if err != nil {
		return nil, types.WrapError(err, "failed to register HTTP server")
	}

	return container, nil
}

func (c *Container) maintenanceTargets() map[string]types.Maintainer {
	targets := make(map[string]types.Maintainer, 2)

	if maintainer, ok := c.Cache.(types.Maintainer); ok {
		targets[cron.CacheMaintenanceJob] = maintainer
	}

	if maintainer, ok := c.Store.(types.Maintainer); ok {
		targets[cron.StoreMaintenanceJob] = maintainer
	}

	return targets
}
