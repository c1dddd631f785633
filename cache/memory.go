package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
	"github.com/saiset-co/sai-campaigns/utils"
)

type MemoryState int32

const (
	MemoryStateStopped MemoryState = iota
	MemoryStateRunning
)

type MemoryConfig struct {
	MaxEntries int `json:"max_entries"`
}

type memoryItem struct {
	key       string
	entry     types.CacheEntry
	expiresAt time.Time
	element   *list.Element
}

// MemoryCache is an in-process ProcessCache. Entries expire after the configured
// TTL and the oldest insertion is evicted once MaxEntries is reached.
type MemoryCache struct {
	logger    types.Logger
	config    *MemoryConfig
	ttl       time.Duration
	now       func() time.Time
	data      map[string]*memoryItem
	order     *list.List
	mu        sync.RWMutex
	state     atomic.Int32
	hits      uint64
	misses    uint64
	evictions uint64
}

type MemoryStats struct {
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

func NewMemoryCache(logger types.Logger, config *types.CacheConfig) (*MemoryCache, error) {
	var memConfig = &MemoryConfig{
		MaxEntries: 100000,
	}

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, memConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal memory cache config")
		}
	}

	return &MemoryCache{
		logger: logger,
		config: memConfig,
		ttl:    config.DefaultTTL,
		now:    time.Now,
		data:   make(map[string]*memoryItem),
		order:  list.New(),
	}, nil
}

func (m *MemoryCache) Read(_ context.Context, key string) (types.CacheEntry, error) {
	if key == "" {
		return types.CacheEntry{}, types.ErrCacheKeyEmpty
	}

	now := m.now()

	m.mu.RLock()
	item, exists := m.data[key]
	if !exists {
		m.mu.RUnlock()
		atomic.AddUint64(&m.misses, 1)
		return types.CacheEntry{}, nil
	}

	if !item.expiresAt.IsZero() && now.After(item.expiresAt) {
		m.mu.RUnlock()

		m.mu.Lock()
		if current, ok := m.data[key]; ok && current == item {
			m.removeUnsafe(item)
		}
		m.mu.Unlock()

		atomic.AddUint64(&m.misses, 1)
		return types.CacheEntry{}, nil
	}

	entry := types.CacheEntry{State: item.entry.State, Value: cloneBytes(item.entry.Value)}
	m.mu.RUnlock()

	atomic.AddUint64(&m.hits, 1)
	return entry, nil
}

func (m *MemoryCache) Write(_ context.Context, key string, entry types.CacheEntry) error {
	if key == "" {
		return types.ErrCacheKeyEmpty
	}
	if entry.State == types.CacheUnknown {
		return types.Errorf(types.ErrCacheEntryInvalid, "key %s: unknown state cannot be stored", key)
	}

	item := &memoryItem{
		key:   key,
		entry: types.CacheEntry{State: entry.State, Value: cloneBytes(entry.Value)},
	}
	if m.ttl > 0 {
		item.expiresAt = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, exists := m.data[key]; exists {
		m.removeUnsafe(old)
	} else if m.config.MaxEntries > 0 && len(m.data) >= m.config.MaxEntries {
		m.evictOldestUnsafe()
	}

	item.element = m.order.PushBack(item)
	m.data[key] = item

	return nil
}

func (m *MemoryCache) Ping(context.Context) error {
	return nil
}

// Maintain drops expired entries; scheduled by the cron manager.
func (m *MemoryCache) Maintain(context.Context) error {
	now := m.now()
	removed := 0

	m.mu.Lock()
	for _, item := range m.data {
		if !item.expiresAt.IsZero() && now.After(item.expiresAt) {
			m.removeUnsafe(item)
			removed++
		}
	}
	remaining := len(m.data)
	m.mu.Unlock()

	m.logger.Debug("Memory cache maintenance completed",
		zap.Int("expired_entries", removed),
		zap.Int("remaining_entries", remaining))

	return nil
}

func (m *MemoryCache) Stats() MemoryStats {
	m.mu.RLock()
	entries := len(m.data)
	m.mu.RUnlock()

	return MemoryStats{
		Entries:   entries,
		Hits:      atomic.LoadUint64(&m.hits),
		Misses:    atomic.LoadUint64(&m.misses),
		Evictions: atomic.LoadUint64(&m.evictions),
	}
}

func (m *MemoryCache) Start() error {
	if !m.state.CompareAndSwap(int32(MemoryStateStopped), int32(MemoryStateRunning)) {
		m.logger.Warn("Memory cache is already running")
		return types.ErrServerAlreadyRunning
	}

	m.logger.Info("Memory cache started",
		zap.Int("max_entries", m.config.MaxEntries),
		zap.Duration("ttl", m.ttl))
	return nil
}

func (m *MemoryCache) Stop() error {
	if !m.state.CompareAndSwap(int32(MemoryStateRunning), int32(MemoryStateStopped)) {
		m.logger.Warn("Memory cache is not running")
		return types.ErrServerNotRunning
	}

	m.mu.Lock()
	cleared := len(m.data)
	m.data = make(map[string]*memoryItem)
	m.order.Init()
	m.mu.Unlock()

	m.logger.Info("Memory cache stopped", zap.Int("cleared_entries", cleared))
	return nil
}

func (m *MemoryCache) IsRunning() bool {
	return MemoryState(m.state.Load()) == MemoryStateRunning
}

func (m *MemoryCache) evictOldestUnsafe() {
	front := m.order.Front()
	if front == nil {
		return
	}

	m.removeUnsafe(front.Value.(*memoryItem))
	atomic.AddUint64(&m.evictions, 1)
}

func (m *MemoryCache) removeUnsafe(item *memoryItem) {
	if item.element != nil {
		m.order.Remove(item.element)
		item.element = nil
	}
	delete(m.data, item.key)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
