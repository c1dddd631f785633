package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
)

var customCacheCreators = make(map[string]types.CacheCreator)

func RegisterCacheManager(cacheManagerName string, creator types.CacheCreator) {
	customCacheCreators[cacheManagerName] = creator
}

func NewCacheManager(ctx context.Context, config types.ConfigManager, logger types.Logger, metrics types.MetricsManager) (types.ProcessCache, error) {
	cacheConfig := config.GetConfig().Cache
	if cacheConfig == nil {
		return nil, types.ErrConfigIsNil
	}

	var impl types.ProcessCache
	var err error

	switch cacheConfig.Type {
	case "memory":
		impl, err = NewMemoryCache(logger, cacheConfig)
	case "redis":
		impl, err = NewRedisCache(ctx, logger, cacheConfig)
	default:
		if creator, exists := customCacheCreators[cacheConfig.Type]; exists {
			impl, err = creator(cacheConfig)
		} else {
			return nil, types.Errorf(types.ErrCacheTypeUnknown, "type: %s", cacheConfig.Type)
		}
	}

	if err != nil {
		return nil, err
	}

	return NewInstrumented(logger, metrics, impl), nil
}

type instrumentedCache struct {
	impl    types.ProcessCache
	logger  types.Logger
	metrics types.MetricsManager
}

// NewInstrumented records operation counts and latency for impl.
func NewInstrumented(logger types.Logger, metrics types.MetricsManager, impl types.ProcessCache) types.ProcessCache {
	return &instrumentedCache{
		impl:    impl,
		logger:  logger,
		metrics: metrics,
	}
}

func (ic *instrumentedCache) Read(ctx context.Context, key string) (types.CacheEntry, error) {
	start := time.Now()
	entry, err := ic.impl.Read(ctx, key)

	result := entry.State.String()
	if err != nil {
		result = "error"
	}

	ic.recordMetric("read", result, time.Since(start))
	return entry, err
}

func (ic *instrumentedCache) Write(ctx context.Context, key string, entry types.CacheEntry) error {
	start := time.Now()
	err := ic.impl.Write(ctx, key, entry)

	result := "success"
	if err != nil {
		result = "error"
	}

	ic.recordMetric("write_"+entry.State.String(), result, time.Since(start))
	return err
}

func (ic *instrumentedCache) Ping(ctx context.Context) error {
	return ic.impl.Ping(ctx)
}

func (ic *instrumentedCache) Maintain(ctx context.Context) error {
	maintainer, ok := ic.impl.(types.Maintainer)
	if !ok {
		return nil
	}

	start := time.Now()
	err := maintainer.Maintain(ctx)
	if err != nil {
		ic.logger.Error("Cache maintenance failed", zap.Error(err))
	}

	ic.recordMetric("maintain", resultOf(err), time.Since(start))
	return err
}

func (ic *instrumentedCache) Start() error {
	return ic.impl.Start()
}

func (ic *instrumentedCache) Stop() error {
	return ic.impl.Stop()
}

func (ic *instrumentedCache) IsRunning() bool {
	return ic.impl.IsRunning()
}

// Unwrap exposes the underlying cache.
func (ic *instrumentedCache) Unwrap() types.ProcessCache {
	return ic.impl
}

func (ic *instrumentedCache) recordMetric(operation, result string, duration time.Duration) {
	ic.metrics.Counter("cache_operations_total", map[string]string{
		"operation": operation,
		"result":    result,
	}).Inc()

	ic.metrics.Histogram("cache_operation_duration_seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		map[string]string{"operation": operation},
	).Observe(duration.Seconds())
}

func resultOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
