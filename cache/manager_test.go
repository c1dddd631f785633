package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-campaigns/config"
	"github.com/saiset-co/sai-campaigns/logger"
	"github.com/saiset-co/sai-campaigns/metrics"
	"github.com/saiset-co/sai-campaigns/types"
)

func newTestPrometheus(t *testing.T) *metrics.PrometheusMetrics {
	t.Helper()
	m, err := metrics.NewPrometheusMetrics(context.Background(), logger.NewNop(), &types.MetricsConfig{
		Enabled:   true,
		Type:      "prometheus",
		Namespace: "test",
	})
	require.NoError(t, err)
	return m
}

func TestNewCacheManagerInstrumentsMemoryCache(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewLoader().Defaults()
	m := newTestPrometheus(t)

	c, err := NewCacheManager(ctx, config.NewStaticManager(cfg), logger.NewNop(), m)
	require.NoError(t, err)

	_, err = c.Read(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, "k", types.Absent()))
	_, err = c.Read(ctx, "k")
	require.NoError(t, err)
	_, err = c.Read(ctx, "")
	require.Error(t, err)

	count := func(op, result string) float64 {
		return m.Counter("cache_operations_total", map[string]string{"operation": op, "result": result}).Get()
	}
	assert.Equal(t, 1.0, count("read", "unknown"))
	assert.Equal(t, 1.0, count("read", "absent"))
	assert.Equal(t, 1.0, count("read", "error"))
	assert.Equal(t, 1.0, count("write_absent", "success"))

	maintainer, ok := c.(types.Maintainer)
	require.True(t, ok)
	require.NoError(t, maintainer.Maintain(ctx))
}

func TestNewCacheManagerUnknownType(t *testing.T) {
	cfg := config.NewLoader().Defaults()
	cfg.Cache.Type = "carrier-pigeon"

	_, err := NewCacheManager(context.Background(), config.NewStaticManager(cfg), logger.NewNop(), metrics.NewNoopMetrics())
	assert.ErrorIs(t, err, types.ErrCacheTypeUnknown)
}

func TestNewCacheManagerCustomCreator(t *testing.T) {
	cfg := config.NewLoader().Defaults()
	cfg.Cache.Type = "custom-memory"

	RegisterCacheManager("custom-memory", func(raw interface{}) (types.ProcessCache, error) {
		return NewMemoryCache(logger.NewNop(), raw.(*types.CacheConfig))
	})
	defer delete(customCacheCreators, "custom-memory")

	c, err := NewCacheManager(context.Background(), config.NewStaticManager(cfg), logger.NewNop(), metrics.NewNoopMetrics())
	require.NoError(t, err)
	_, ok := c.(*instrumentedCache).Unwrap().(*MemoryCache)
	assert.True(t, ok)
}
