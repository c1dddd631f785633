package database

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// OptionsTable is the table or collection holding option rows.
const OptionsTable = "options"

var customStoreCreators = make(map[string]types.StoreCreator)

func RegisterStore(storeType string, creator types.StoreCreator) {
	customStoreCreators[storeType] = creator
}

func NewStore(ctx context.Context, config types.ConfigManager, logger types.Logger, metrics types.MetricsManager) (types.DurableStore, error) {
	storeConfig := config.GetConfig().Store
	if storeConfig == nil {
		return nil, types.ErrConfigIsNil
	}

	var impl types.DurableStore
	var err error

	switch storeConfig.Type {
	case "memory":
		impl = NewMemoryStore(logger)
	case "sqlite":
		impl, err = NewSQLiteStore(ctx, logger, storeConfig)
	case "clover":
		impl, err = NewCloverStore(logger, storeConfig)
	case "badger":
		impl, err = NewBadgerStore(logger, storeConfig)
	default:
		if creator, exists := customStoreCreators[storeConfig.Type]; exists {
			impl, err = creator(storeConfig)
		} else {
			return nil, types.Errorf(types.ErrStoreTypeUnknown, "type: %s", storeConfig.Type)
		}
	}

	if err != nil {
		return nil, err
	}

	return newInstrumentedStore(logger, metrics, storeConfig.Type, impl), nil
}

type instrumentedStore struct {
	impl      types.DurableStore
	logger    types.Logger
	metrics   types.MetricsManager
	storeType string
	state     atomic.Value
}

func newInstrumentedStore(logger types.Logger, metrics types.MetricsManager, storeType string, impl types.DurableStore) types.DurableStore {
	instrumented := &instrumentedStore{
		impl:      impl,
		logger:    logger,
		metrics:   metrics,
		storeType: storeType,
	}

	instrumented.state.Store(StateStopped)
	return instrumented
}

func (s *instrumentedStore) Start() error {
	if !s.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	if err := s.impl.Start(); err != nil {
		s.setState(StateStopped)
		return err
	}

	s.setState(StateRunning)
	s.logger.Info("Durable store started", zap.String("type", s.storeType))
	return nil
}

func (s *instrumentedStore) Stop() error {
	if !s.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	defer func() {
		s.setState(StateStopped)
	}()

	if err := s.impl.Stop(); err != nil {
		s.logger.Error("Failed to stop durable store", zap.String("type", s.storeType), zap.Error(err))
		return err
	}

	s.logger.Info("Durable store stopped gracefully", zap.String("type", s.storeType))
	return nil
}

func (s *instrumentedStore) IsRunning() bool {
	return s.getState() == StateRunning
}

func (s *instrumentedStore) Read(ctx context.Context, name string) ([]byte, bool, error) {
	start := time.Now()
	value, found, err := s.impl.Read(ctx, name)

	result := "found"
	switch {
	case err != nil:
		result = "error"
	case !found:
		result = "not_found"
	}

	s.recordMetric("read", result, time.Since(start))
	return value, found, err
}

func (s *instrumentedStore) Upsert(ctx context.Context, name string, value []byte, autoload types.Autoload) error {
	start := time.Now()
	err := s.impl.Upsert(ctx, name, value, autoload)

	result := "success"
	if err != nil {
		result = "error"
	}

	s.recordMetric("upsert", result, time.Since(start))
	return err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	return s.impl.Ping(ctx)
}

func (s *instrumentedStore) Maintain(ctx context.Context) error {
	maintainer, ok := s.impl.(types.Maintainer)
	if !ok {
		return nil
	}

	start := time.Now()
	err := maintainer.Maintain(ctx)

	result := "success"
	if err != nil {
		result = "error"
		s.logger.Error("Store maintenance failed", zap.String("type", s.storeType), zap.Error(err))
	}

	s.recordMetric("maintain", result, time.Since(start))
	return err
}

func (s *instrumentedStore) Unwrap() types.DurableStore {
	return s.impl
}

func (s *instrumentedStore) recordMetric(operation, result string, duration time.Duration) {
	s.metrics.Counter("store_operations_total", map[string]string{
		"store":     s.storeType,
		"operation": operation,
		"result":    result,
	}).Inc()

	s.metrics.Histogram("store_operation_duration_seconds",
		[]float64{0.0005, 0.005, 0.05, 0.5, 5},
		map[string]string{"store": s.storeType, "operation": operation},
	).Observe(duration.Seconds())
}

func (s *instrumentedStore) getState() State {
	return s.state.Load().(State)
}

func (s *instrumentedStore) setState(newState State) {
	s.state.Store(newState)
}

func (s *instrumentedStore) transitionState(from, to State) bool {
	return s.state.CompareAndSwap(from, to)
}

func validateUpsert(name string, autoload types.Autoload) error {
	if name == "" {
		return types.ErrStoreNameEmpty
	}
	if !autoload.Valid() {
		return types.Errorf(types.ErrStoreAutoloadInvalid, "autoload %q for %s", autoload, name)
	}
	return nil
}
