package middleware

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/types"
)

const MaxMiddlewares = 64

type entry struct {
	name       string
	weight     int
	middleware types.Middleware
}

type compiledChain struct {
	middlewares []types.Middleware
}

// Manager runs registered middlewares in ascending weight order. Routes can
// switch individual middlewares off by name; each distinct combination is
// compiled once.
type Manager struct {
	config      types.ConfigManager
	logger      types.Logger
	metrics     types.MetricsManager
	registered  map[string]*entry
	ordered     []*entry
	nameToIndex map[string]int
	chains      map[uint64]*compiledChain
	chainsMu    sync.RWMutex
	mu          sync.Mutex
	initialized int32
}

func NewManager(config types.ConfigManager, logger types.Logger, metrics types.MetricsManager) *Manager {
	return &Manager{
		config:      config,
		logger:      logger,
		metrics:     metrics,
		registered:  make(map[string]*entry),
		nameToIndex: make(map[string]int),
		chains:      make(map[uint64]*compiledChain),
	}
}

// RegisterMiddlewares registers the configured middlewares and freezes the chain.
func (m *Manager) RegisterMiddlewares() error {
	config := m.config.GetConfig().Middlewares

	if config != nil {
		if enabled(config.Recovery) {
			if err := m.Register(NewRecoveryMiddleware(m.config, m.logger, m.metrics)); err != nil {
				return err
			}
			m.logger.Info("Recovery middleware registered")
		}

		if enabled(config.Metadata) {
			if err := m.Register(NewMetadataMiddleware(m.config, m.logger)); err != nil {
				return err
			}
			m.logger.Info("Metadata middleware registered")
		}

		if enabled(config.Logging) {
			if err := m.Register(NewLoggingMiddleware(m.config, m.logger, m.metrics)); err != nil {
				return err
			}
			m.logger.Info("Logging middleware registered")
		}
	}

	return m.Finalize()
}

func (m *Manager) Register(middleware types.Middleware) error {
	if middleware == nil {
		return types.ErrMiddlewareInvalidType
	}

	if atomic.LoadInt32(&m.initialized) == 1 {
		return types.NewErrorf("cannot register middleware after finalization")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.registered) >= MaxMiddlewares {
		return types.NewErrorf("maximum middleware count exceeded: %d", MaxMiddlewares)
	}

	m.registered[middleware.Name()] = &entry{
		name:       middleware.Name(),
		weight:     middleware.Weight(),
		middleware: middleware,
	}
	return nil
}

func (m *Manager) Finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if atomic.LoadInt32(&m.initialized) == 1 {
		return types.NewErrorf("configuration already finalized")
	}

	weights := make(map[int]string)
	for name, e := range m.registered {
		if existing, exists := weights[e.weight]; exists {
			return types.NewErrorf("duplicate weight %d for middlewares '%s' and '%s'", e.weight, existing, name)
		}
		weights[e.weight] = name
	}

	m.ordered = make([]*entry, 0, len(m.registered))
	for _, e := range m.registered {
		m.ordered = append(m.ordered, e)
	}

	sort.Slice(m.ordered, func(i, j int) bool {
		return m.ordered[i].weight < m.ordered[j].weight
	})

	for i, e := range m.ordered {
		m.nameToIndex[e.name] = i
	}

	atomic.StoreInt32(&m.initialized, 1)

	names := make([]string, len(m.ordered))
	for i, e := range m.ordered {
		names[i] = e.name
	}
	m.logger.Debug("Middleware chain finalized", zap.Strings("order", names))

	return nil
}

func (m *Manager) Execute(ctx *fasthttp.RequestCtx, handler fasthttp.RequestHandler, config *types.RouteConfig) {
	if atomic.LoadInt32(&m.initialized) == 0 {
		handler(ctx)
		return
	}

	chain := m.chainFor(m.maskFor(config))
	if len(chain.middlewares) == 0 {
		handler(ctx)
		return
	}

	var index int
	var next fasthttp.RequestHandler
	next = func(ctx *fasthttp.RequestCtx) {
		if index >= len(chain.middlewares) {
			handler(ctx)
			return
		}

		mw := chain.middlewares[index]
		index++
		mw.Handle(ctx, next, config)
	}

	next(ctx)
}

func (m *Manager) maskFor(config *types.RouteConfig) uint64 {
	mask := uint64(1)<<uint(len(m.ordered)) - 1
	if config == nil {
		return mask
	}

	for _, name := range config.DisabledMiddlewares {
		if index, exists := m.nameToIndex[name]; exists {
			mask &^= 1 << uint(index)
		}
	}
	return mask
}

func (m *Manager) chainFor(mask uint64) *compiledChain {
	m.chainsMu.RLock()
	chain := m.chains[mask]
	m.chainsMu.RUnlock()

	if chain != nil {
		return chain
	}

	chain = &compiledChain{middlewares: make([]types.Middleware, 0, len(m.ordered))}
	for i, e := range m.ordered {
		if mask&(1<<uint(i)) != 0 {
			chain.middlewares = append(chain.middlewares, e.middleware)
		}
	}

	m.chainsMu.Lock()
	m.chains[mask] = chain
	m.chainsMu.Unlock()

	return chain
}

func enabled(item *types.MiddlewareItemConfig) bool {
	return item != nil && item.Enabled
}
