package transient

import (
	"context"
	"sync"

	"github.com/saiset-co/sai-campaigns/types"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]types.CacheEntry
	reads   int
	writes  int
	readErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]types.CacheEntry)}
}

func (f *fakeCache) Start() error    { return nil }
func (f *fakeCache) Stop() error     { return nil }
func (f *fakeCache) IsRunning() bool { return true }

func (f *fakeCache) Read(_ context.Context, key string) (types.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return types.CacheEntry{}, f.readErr
	}
	return f.entries[key], nil
}

func (f *fakeCache) Write(_ context.Context, key string, entry types.CacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.entries[key] = entry
	return nil
}

func (f *fakeCache) Ping(context.Context) error { return nil }

func (f *fakeCache) evict(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
}

type fakeStore struct {
	mu        sync.Mutex
	rows      map[string][]byte
	autoload  map[string]types.Autoload
	reads     int
	upserts   int
	readErr   error
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:     make(map[string][]byte),
		autoload: make(map[string]types.Autoload),
	}
}

func (f *fakeStore) Start() error    { return nil }
func (f *fakeStore) Stop() error     { return nil }
func (f *fakeStore) IsRunning() bool { return true }

func (f *fakeStore) Read(_ context.Context, name string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return nil, false, f.readErr
	}
	value, ok := f.rows[name]
	return value, ok, nil
}

func (f *fakeStore) Upsert(_ context.Context, name string, value []byte, autoload types.Autoload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.rows[name] = value
	f.autoload[name] = autoload
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
