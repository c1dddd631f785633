package database

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
)

type memoryRow struct {
	value    []byte
	autoload types.Autoload
}

// MemoryStore keeps option rows in process memory. Rows are lost on restart.
type MemoryStore struct {
	logger types.Logger
	rows   map[string]memoryRow
	mu     sync.RWMutex
	state  atomic.Value
}

func NewMemoryStore(logger types.Logger) *MemoryStore {
	store := &MemoryStore{
		logger: logger,
		rows:   make(map[string]memoryRow),
	}

	store.state.Store(StateStopped)
	return store
}

func (m *MemoryStore) Start() error {
	if !m.state.CompareAndSwap(StateStopped, StateRunning) {
		return types.ErrServerAlreadyRunning
	}

	m.logger.Info("Memory store started")
	return nil
}

func (m *MemoryStore) Stop() error {
	if !m.state.CompareAndSwap(StateRunning, StateStopped) {
		return types.ErrServerNotRunning
	}

	m.mu.RLock()
	rows := len(m.rows)
	m.mu.RUnlock()

	m.logger.Info("Memory store stopped", zap.Int("rows", rows))
	return nil
}

func (m *MemoryStore) IsRunning() bool {
	return m.state.Load().(State) == StateRunning
}

func (m *MemoryStore) Read(_ context.Context, name string) ([]byte, bool, error) {
	if name == "" {
		return nil, false, types.ErrStoreNameEmpty
	}

	m.mu.RLock()
	row, exists := m.rows[name]
	m.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}

	return cloneValue(row.value), true, nil
}

func (m *MemoryStore) Upsert(_ context.Context, name string, value []byte, autoload types.Autoload) error {
	if err := validateUpsert(name, autoload); err != nil {
		return err
	}

	m.mu.Lock()
	m.rows[name] = memoryRow{value: cloneValue(value), autoload: autoload}
	m.mu.Unlock()

	return nil
}

// Autoload returns the hint stored next to name.
func (m *MemoryStore) Autoload(name string) (types.Autoload, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, exists := m.rows[name]
	return row.autoload, exists
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func cloneValue(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
