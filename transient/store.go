package transient

import (
	"context"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
	"github.com/saiset-co/sai-campaigns/utils"
)

// NamePrefix is prepended to every transient name before it reaches a backend.
const NamePrefix = "_transient_"

// Store is a cache-aside key/value layer over a shared ProcessCache and
// DurableStore. Absence found in the durable store is cached too, so a missing
// name costs one durable read per cache lifetime.
//
// Concurrent writers to the same name are last-writer-wins.
type Store struct {
	cache  types.ProcessCache
	store  types.DurableStore
	logger types.Logger
}

func New(cache types.ProcessCache, store types.DurableStore, logger types.Logger) *Store {
	return &Store{
		cache:  cache,
		store:  store,
		logger: logger,
	}
}

// Get decodes the value stored under name into target and reports whether one
// exists. Cache and store failures are returned, never reported as absence.
// counters may be nil.
func (s *Store) Get(ctx context.Context, counters *Counters, name string, target interface{}) (bool, error) {
	if counters == nil {
		counters = &Counters{}
	}

	key := NamePrefix + name

	entry, err := s.cache.Read(ctx, key)
	if err != nil {
		return false, types.WrapError(err, "transient cache read "+key)
	}

	switch entry.State {
	case types.CacheAbsent:
		counters.ReadEmptyTransients++
		counters.CacheCount++
		return false, nil

	case types.CachePresent:
		counters.CacheCount++
		return true, decode(key, entry.Value, target)
	}

	counters.ReadQueryCount++

	value, found, err := s.store.Read(ctx, key)
	if err != nil {
		return false, types.WrapError(err, "transient store read "+key)
	}

	// An empty stored value carries nothing to decode and counts as absent.
	if !found || len(value) == 0 {
		counters.WriteEmptyTransients++
		if err = s.cache.Write(ctx, key, types.Absent()); err != nil {
			return false, types.WrapError(err, "transient cache write "+key)
		}

		s.logger.Debug("Transient cached as absent", zap.String("name", key))
		return false, nil
	}

	if err = s.cache.Write(ctx, key, types.Present(value)); err != nil {
		return false, types.WrapError(err, "transient cache write "+key)
	}

	return true, decode(key, value, target)
}

// Set writes value through the cache to the durable store, replacing any
// cached absence. A value that cannot be serialized panics with
// types.ErrSerializationFailed.
func (s *Store) Set(ctx context.Context, counters *Counters, name string, value interface{}) error {
	if counters == nil {
		counters = &Counters{}
	}

	key := NamePrefix + name

	data, err := utils.Marshal(value)
	if err != nil {
		panic(types.Errorf(types.ErrSerializationFailed, "transient %s: %w", key, err))
	}

	if err = s.cache.Write(ctx, key, types.Present(data)); err != nil {
		return types.WrapError(err, "transient cache write "+key)
	}

	if err = s.store.Upsert(ctx, key, data, types.AutoloadNo); err != nil {
		return types.WrapError(err, "transient store upsert "+key)
	}

	counters.WriteQueryCount++
	return nil
}

func decode(key string, data []byte, target interface{}) error {
	if target == nil {
		return nil
	}

	if err := utils.UnmarshalInto(data, target); err != nil {
		return types.Errorf(types.ErrDecodeFailed, "transient %s: %w", key, err)
	}

	return nil
}
