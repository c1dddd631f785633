package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-campaigns/logger"
	"github.com/saiset-co/sai-campaigns/types"
)

type storeFactory func(t *testing.T) types.DurableStore

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) types.DurableStore {
			return NewMemoryStore(logger.NewNop())
		},
		"sqlite": func(t *testing.T) types.DurableStore {
			s, err := NewSQLiteStore(context.Background(), logger.NewNop(), &types.StoreConfig{
				Type: "sqlite",
				Path: filepath.Join(t.TempDir(), "options.db"),
			})
			require.NoError(t, err)
			return s
		},
		"clover": func(t *testing.T) types.DurableStore {
			s, err := NewCloverStore(logger.NewNop(), &types.StoreConfig{
				Type: "clover",
				Path: t.TempDir(),
			})
			require.NoError(t, err)
			return s
		},
		"badger": func(t *testing.T) types.DurableStore {
			s, err := NewBadgerStore(logger.NewNop(), &types.StoreConfig{
				Type: "badger",
				Path: t.TempDir(),
			})
			require.NoError(t, err)
			return s
		},
	}
}

func TestDurableStoreContract(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)
			require.NoError(t, store.Start())
			defer func() { _ = store.Stop() }()

			require.NoError(t, store.Ping(ctx))

			_, found, err := store.Read(ctx, "_transient_missing")
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, store.Upsert(ctx, "_transient_k", []byte(`{"count":1}`), types.AutoloadNo))
			value, found, err := store.Read(ctx, "_transient_k")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, `{"count":1}`, string(value))

			require.NoError(t, store.Upsert(ctx, "_transient_k", []byte(`{"count":2}`), types.AutoloadYes))
			value, found, err = store.Read(ctx, "_transient_k")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, `{"count":2}`, string(value))

			_, _, err = store.Read(ctx, "")
			assert.ErrorIs(t, err, types.ErrStoreNameEmpty)

			err = store.Upsert(ctx, "_transient_k", []byte("1"), types.Autoload("maybe"))
			assert.ErrorIs(t, err, types.ErrStoreAutoloadInvalid)

			if maintainer, ok := store.(types.Maintainer); ok {
				assert.NoError(t, maintainer.Maintain(ctx))
			}
		})
	}
}

func TestSQLiteStoreKeepsOneRowPerName(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, logger.NewNop(), &types.StoreConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "nested", "options.db"),
	})
	require.NoError(t, err)
	require.NoError(t, store.Start())
	defer func() { _ = store.Stop() }()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Upsert(ctx, "_transient_k", []byte("v"), types.AutoloadNo))
	}

	var rows int
	var autoload string
	require.NoError(t, store.db.QueryRowContext(ctx,
		"SELECT COUNT(*), MAX(autoload) FROM "+OptionsTable+" WHERE option_name = ?", "_transient_k").Scan(&rows, &autoload))
	assert.Equal(t, 1, rows)
	assert.Equal(t, "no", autoload)
}

func TestSQLiteStoreErrorsKeepCause(t *testing.T) {
	store, err := NewSQLiteStore(context.Background(), logger.NewNop(), &types.StoreConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "options.db"),
	})
	require.NoError(t, err)
	require.NoError(t, store.Start())
	defer func() { _ = store.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = store.Read(ctx, "_transient_k")
	assert.ErrorIs(t, err, types.ErrStoreOperationFailed)
	assert.ErrorIs(t, err, context.Canceled)

	err = store.Upsert(ctx, "_transient_k", []byte("v"), types.AutoloadNo)
	assert.ErrorIs(t, err, types.ErrStoreOperationFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCloverStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := &types.StoreConfig{Type: "clover", Path: dir}

	store, err := NewCloverStore(logger.NewNop(), cfg)
	require.NoError(t, err)
	require.NoError(t, store.Start())
	require.NoError(t, store.Upsert(ctx, "_transient_k", []byte("persisted"), types.AutoloadNo))
	require.NoError(t, store.Stop())

	reopened, err := NewCloverStore(logger.NewNop(), cfg)
	require.NoError(t, err)
	require.NoError(t, reopened.Start())
	defer func() { _ = reopened.Stop() }()

	value, found, err := reopened.Read(ctx, "_transient_k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "persisted", string(value))

	count, err := reopened.db.Query(OptionsTable).Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStoreKeepsAutoloadHint(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(logger.NewNop())

	require.NoError(t, store.Upsert(ctx, "a", []byte("1"), types.AutoloadNo))
	autoload, ok := store.Autoload("a")
	assert.True(t, ok)
	assert.Equal(t, types.AutoloadNo, autoload)
	assert.Equal(t, 1, store.Len())
}
