package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
	"github.com/saiset-co/sai-campaigns/utils"
)

type RedisConfig struct {
	Host               string        `json:"host"`
	Port               int           `json:"port"`
	Password           string        `json:"password"`
	DB                 int           `json:"db"`
	PoolSize           int           `json:"pool_size"`
	MinIdleConnections int           `json:"min_idle_connections"`
	DialTimeout        time.Duration `json:"dial_timeout"`
	ReadTimeout        time.Duration `json:"read_timeout"`
	WriteTimeout       time.Duration `json:"write_timeout"`
	KeyPrefix          string        `json:"key_prefix"`
}

// RedisCache shares entries across processes. Corrupt entries are reported as
// errors rather than treated as misses.
type RedisCache struct {
	logger  types.Logger
	config  *RedisConfig
	ttl     time.Duration
	client  redis.UniversalClient
	started int32
}

func NewRedisCache(ctx context.Context, logger types.Logger, config *types.CacheConfig) (*RedisCache, error) {
	var redisConfig = &RedisConfig{
		Host:               "localhost",
		Port:               6379,
		PoolSize:           10,
		MinIdleConnections: 2,
		DialTimeout:        5 * time.Second,
		ReadTimeout:        3 * time.Second,
		WriteTimeout:       3 * time.Second,
		KeyPrefix:          "sai-campaigns",
	}

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, redisConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal redis cache config")
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
		Password:     redisConfig.Password,
		DB:           redisConfig.DB,
		PoolSize:     redisConfig.PoolSize,
		MinIdleConns: redisConfig.MinIdleConnections,
		DialTimeout:  redisConfig.DialTimeout,
		ReadTimeout:  redisConfig.ReadTimeout,
		WriteTimeout: redisConfig.WriteTimeout,
	})

	cache := NewRedisCacheWithClient(logger, redisConfig, config.DefaultTTL, client)

	if err := cache.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, types.Errorf(types.ErrCacheConnectionFailed, "ping: %w", err)
	}

	return cache, nil
}

func NewRedisCacheWithClient(logger types.Logger, config *RedisConfig, ttl time.Duration, client redis.UniversalClient) *RedisCache {
	return &RedisCache{
		logger: logger,
		config: config,
		ttl:    ttl,
		client: client,
	}
}

func (r *RedisCache) Read(ctx context.Context, key string) (types.CacheEntry, error) {
	if key == "" {
		return types.CacheEntry{}, types.ErrCacheKeyEmpty
	}

	raw, err := r.client.Get(ctx, r.buildFullKey(key)).Bytes()
	if err != nil {
		if types.IsError(err, redis.Nil) {
			return types.CacheEntry{}, nil
		}
		r.logger.Error("Failed to read cache entry", zap.String("key", key), zap.Error(err))
		return types.CacheEntry{}, types.Errorf(types.ErrCacheOperationFailed, "get %s: %w", key, err)
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		r.logger.Error("Failed to decode cache entry", zap.String("key", key), zap.Error(err))
		return types.CacheEntry{}, err
	}

	return entry, nil
}

func (r *RedisCache) Write(ctx context.Context, key string, entry types.CacheEntry) error {
	if key == "" {
		return types.ErrCacheKeyEmpty
	}

	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.buildFullKey(key), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to write cache entry", zap.String("key", key), zap.Error(err))
		return types.Errorf(types.ErrCacheOperationFailed, "set %s: %w", key, err)
	}

	return nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.client.Ping(pingCtx).Err()
}

func (r *RedisCache) Start() error {
	if !atomic.CompareAndSwapInt32(&r.started, 0, 1) {
		return types.ErrServerAlreadyRunning
	}

	r.logger.Info("Redis cache started",
		zap.String("host", r.config.Host),
		zap.Int("port", r.config.Port),
		zap.String("key_prefix", r.config.KeyPrefix))

	return nil
}

func (r *RedisCache) Stop() error {
	if !atomic.CompareAndSwapInt32(&r.started, 1, 0) {
		return types.ErrServerNotRunning
	}

	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis client", zap.Error(err))
		return types.WrapError(err, "failed to close redis client")
	}

	r.logger.Info("Redis cache closed successfully")
	return nil
}

func (r *RedisCache) IsRunning() bool {
	return atomic.LoadInt32(&r.started) == 1
}

func (r *RedisCache) buildFullKey(key string) string {
	if r.config.KeyPrefix != "" {
		return r.config.KeyPrefix + ":" + key
	}
	return key
}
