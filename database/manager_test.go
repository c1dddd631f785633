package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-campaigns/config"
	"github.com/saiset-co/sai-campaigns/logger"
	"github.com/saiset-co/sai-campaigns/metrics"
	"github.com/saiset-co/sai-campaigns/types"
)

func TestNewStoreRecordsOperations(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewLoader().Defaults()
	cfg.Store.Type = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "options.db")

	m, err := metrics.NewPrometheusMetrics(ctx, logger.NewNop(), &types.MetricsConfig{
		Enabled:   true,
		Type:      "prometheus",
		Namespace: "test",
	})
	require.NoError(t, err)

	store, err := NewStore(ctx, config.NewStaticManager(cfg), logger.NewNop(), m)
	require.NoError(t, err)

	require.NoError(t, store.Start())
	assert.True(t, store.IsRunning())
	assert.ErrorIs(t, store.Start(), types.ErrServerAlreadyRunning)

	_, _, err = store.Read(ctx, "missing")
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, "present", []byte("1"), types.AutoloadNo))
	_, _, err = store.Read(ctx, "present")
	require.NoError(t, err)

	count := func(op, result string) float64 {
		return m.Counter("store_operations_total", map[string]string{
			"store":     "sqlite",
			"operation": op,
			"result":    result,
		}).Get()
	}
	assert.Equal(t, 1.0, count("read", "not_found"))
	assert.Equal(t, 1.0, count("read", "found"))
	assert.Equal(t, 1.0, count("upsert", "success"))

	maintainer, ok := store.(types.Maintainer)
	require.True(t, ok)
	require.NoError(t, maintainer.Maintain(ctx))

	require.NoError(t, store.Stop())
	assert.False(t, store.IsRunning())
}

func TestNewStoreUnknownType(t *testing.T) {
	cfg := config.NewLoader().Defaults()
	cfg.Store.Type = "punch-cards"

	_, err := NewStore(context.Background(), config.NewStaticManager(cfg), logger.NewNop(), metrics.NewNoopMetrics())
	assert.ErrorIs(t, err, types.ErrStoreTypeUnknown)
}

func TestNewStoreCustomCreator(t *testing.T) {
	cfg := config.NewLoader().Defaults()
	cfg.Store.Type = "shared-memory"

	shared := NewMemoryStore(logger.NewNop())
	RegisterStore("shared-memory", func(raw interface{}) (types.DurableStore, error) {
		assert.Equal(t, "shared-memory", raw.(*types.StoreConfig).Type)
		return shared, nil
	})
	defer delete(customStoreCreators, "shared-memory")

	store, err := NewStore(context.Background(), config.NewStaticManager(cfg), logger.NewNop(), metrics.NewNoopMetrics())
	require.NoError(t, err)
	require.NoError(t, store.Start())
	defer func() { _ = store.Stop() }()

	require.NoError(t, store.Upsert(context.Background(), "_transient_k", []byte(`{}`), types.AutoloadNo))
	assert.Equal(t, 1, shared.Len())
}
