package health

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-campaigns/types"
	"github.com/saiset-co/sai-campaigns/utils"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

const (
	DefaultPath    = "/health"
	VersionPath    = "/version"
	defaultTimeout = 5 * time.Second
)

type Manager struct {
	ctx          context.Context
	cancel       context.CancelFunc
	config       types.ConfigManager
	logger       types.Logger
	checkers     map[string]types.HealthChecker
	results      map[string]types.HealthCheck
	build        BuildInfo
	startTime    time.Time
	mu           sync.RWMutex
	state        atomic.Value
	checkTimeout time.Duration
	path         string
}

func NewManager(ctx context.Context, config types.ConfigManager, logger types.Logger) *Manager {
	managerCtx, cancel := context.WithCancel(ctx)

	manager := &Manager{
		ctx:          managerCtx,
		cancel:       cancel,
		config:       config,
		logger:       logger,
		checkers:     make(map[string]types.HealthChecker),
		results:      make(map[string]types.HealthCheck),
		build:        ReadBuildInfo(),
		startTime:    time.Now(),
		checkTimeout: defaultTimeout,
		path:         DefaultPath,
	}

	if healthConfig := config.GetConfig().Health; healthConfig != nil {
		if healthConfig.Timeout > 0 {
			manager.checkTimeout = healthConfig.Timeout
		}
		if healthConfig.Path != "" {
			manager.path = healthConfig.Path
		}
	}

	manager.state.Store(StateStopped)

	return manager
}

func (hm *Manager) RegisterChecker(name string, checker types.HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.checkers[name] = checker
}

// RegisterRoutes exposes the report and build info. Probes are excluded from request logging.
func (hm *Manager) RegisterRoutes(router types.HTTPRouter) {
	config := &types.RouteConfig{
		DisabledMiddlewares: []string{"logging"},
	}

	router.Add(fasthttp.MethodGet, hm.path, hm.handleHealth, config)
	router.Add(fasthttp.MethodGet, VersionPath, hm.handleVersion, config)
}

func (hm *Manager) Check(ctx context.Context) types.HealthReport {
	hm.mu.RLock()
	checkers := make(map[string]types.HealthChecker, len(hm.checkers))
	for name, checker := range hm.checkers {
		checkers[name] = checker
	}
	hm.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, hm.checkTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(checkCtx)
	results := make(map[string]types.HealthCheck, len(checkers))
	var resultMu sync.Mutex

	for name, checker := range checkers {
		name, checker := name, checker
		g.Go(func() error {
			result := hm.executeCheck(gCtx, name, checker)

			resultMu.Lock()
			results[name] = result
			resultMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		hm.logger.Error("Error during health checks", zap.Error(err))
	}

	hm.mu.Lock()
	hm.results = results
	hm.mu.Unlock()

	return hm.buildReport(results)
}

// LastReport returns the results of the most recent Check without running the checkers.
func (hm *Manager) LastReport() types.HealthReport {
	hm.mu.RLock()
	results := make(map[string]types.HealthCheck, len(hm.results))
	for name, result := range hm.results {
		results[name] = result
	}
	hm.mu.RUnlock()

	return hm.buildReport(results)
}

func (hm *Manager) Start() error {
	if !hm.transitionState(StateStopped, StateStarting) {
		hm.logger.Warn("Health manager is already running")
		return types.ErrServerAlreadyRunning
	}

	hm.startTime = time.Now()
	hm.setState(StateRunning)

	hm.logger.Info("Health manager started", zap.String("path", hm.path), zap.Duration("timeout", hm.checkTimeout))
	return nil
}

func (hm *Manager) Stop() error {
	if !hm.transitionState(StateRunning, StateStopping) {
		hm.logger.Warn("Health manager is not running")
		return types.ErrServerNotRunning
	}

	hm.cancel()
	hm.setState(StateStopped)

	hm.logger.Info("Health manager stopped")
	return nil
}

func (hm *Manager) IsRunning() bool {
	return hm.getState() == StateRunning
}

func (hm *Manager) getState() State {
	return hm.state.Load().(State)
}

func (hm *Manager) setState(newState State) {
	hm.state.Store(newState)
}

func (hm *Manager) transitionState(from, to State) bool {
	return hm.state.CompareAndSwap(from, to)
}

func (hm *Manager) handleHealth(ctx *fasthttp.RequestCtx) {
	if !hm.IsRunning() {
		utils.CreateErrorResponse(ctx, fasthttp.StatusServiceUnavailable, "health_not_running")
		return
	}

	// RequestCtx is only a usable context.Context while a server owns it.
	report := hm.Check(context.Background())

	body, err := utils.Marshal(report)
	if err != nil {
		hm.logger.Error("Failed to encode health report", zap.Error(err))
		utils.CreateErrorResponse(ctx, fasthttp.StatusInternalServerError, "internal_error")
		return
	}

	status := fasthttp.StatusOK
	if report.Status == types.StatusUnhealthy {
		status = fasthttp.StatusServiceUnavailable
	}

	utils.WriteJSON(ctx, status, body)
}

func (hm *Manager) handleVersion(ctx *fasthttp.RequestCtx) {
	body, err := utils.Marshal(hm.build.withVersion(hm.config.GetConfig().Version))
	if err != nil {
		hm.logger.Error("Failed to encode build info", zap.Error(err))
		utils.CreateErrorResponse(ctx, fasthttp.StatusInternalServerError, "internal_error")
		return
	}

	utils.WriteJSON(ctx, fasthttp.StatusOK, body)
}

func (hm *Manager) executeCheck(ctx context.Context, name string, checker types.HealthChecker) types.HealthCheck {
	start := time.Now()

	resultChan := make(chan types.HealthCheck, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultChan <- types.HealthCheck{
					Name:      name,
					Status:    types.StatusUnhealthy,
					Message:   fmt.Sprintf("Health check panicked: %v", r),
					LastCheck: time.Now(),
					Duration:  time.Since(start),
				}
			}
		}()

		result := checker(ctx)
		result.Name = name
		result.LastCheck = time.Now()
		result.Duration = time.Since(start)
		resultChan <- result
	}()

	select {
	case result := <-resultChan:
		return result
	case <-hm.ctx.Done():
		return types.HealthCheck{
			Name:      name,
			Status:    types.StatusUnhealthy,
			Message:   "Health manager shutting down",
			LastCheck: time.Now(),
			Duration:  time.Since(start),
		}
	case <-ctx.Done():
		return types.HealthCheck{
			Name:      name,
			Status:    types.StatusUnhealthy,
			Message:   types.ErrHealthCheckTimeout.Error(),
			LastCheck: time.Now(),
			Duration:  time.Since(start),
		}
	}
}

func (hm *Manager) buildReport(results map[string]types.HealthCheck) types.HealthReport {
	config := hm.config.GetConfig()

	summary := types.HealthSummary{
		Total: len(results),
	}

	overallStatus := types.StatusHealthy
	for _, result := range results {
		switch result.Status {
		case types.StatusHealthy:
			summary.Healthy++
		case types.StatusUnhealthy:
			summary.Unhealthy++
			overallStatus = types.StatusUnhealthy
		default:
			summary.Unknown++
			if overallStatus == types.StatusHealthy {
				overallStatus = types.StatusUnknown
			}
		}
	}

	return types.HealthReport{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Uptime:    time.Since(hm.startTime),
		Service: types.ServiceInfo{
			Name:    config.Name,
			Version: config.Version,
			Build:   hm.build.Short(),
		},
		Checks:  results,
		Summary: summary,
	}
}
