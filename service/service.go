package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-campaigns/config"
	"github.com/saiset-co/sai-campaigns/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

type Service struct {
	ctx             context.Context
	cancel          context.CancelFunc
	done            chan struct{}
	started         chan struct{}
	wg              sync.WaitGroup
	state           atomic.Value
	shutdownTimeout time.Duration
	startTimeout    time.Duration
	handleSignals   bool
	container       *Container
}

func NewService(ctx context.Context, configPath string) (*Service, error) {
	if configPath == "" {
		return nil, types.ErrConfigInvalidPath
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, types.WrapError(err, "file does not exist")
	}

	configManager, err := config.NewConfigurationManager(ctx, configPath)
	if err != nil {
		return nil, types.WrapError(err, "failed to register config manager")
	}

	service, err := NewServiceWithConfig(ctx, configManager)
	if err != nil {
		return nil, err
	}

	service.handleSignals = true
	return service, nil
}

// NewServiceWithConfig builds a service from an already loaded config. It does
// not install signal handlers.
func NewServiceWithConfig(ctx context.Context, configManager types.ConfigManager) (*Service, error) {
	serviceCtx, cancel := context.WithCancel(ctx)

	container, err := NewContainer(serviceCtx, configManager)
	if err != nil {
		cancel()
		return nil, types.WrapError(err, "failed to register providers")
	}

	service := &Service{
		ctx:             serviceCtx,
		cancel:          cancel,
		container:       container,
		done:            make(chan struct{}),
		started:         make(chan struct{}),
		shutdownTimeout: 30 * time.Second,
		startTimeout:    60 * time.Second,
	}

	if httpConfig := configManager.GetConfig().Server.HTTP; httpConfig.ShutdownTimeout > 0 {
		service.shutdownTimeout = time.Duration(httpConfig.ShutdownTimeout) * time.Second
	}

	service.state.Store(StateStopped)

	return service, nil
}

// Start brings every component up and blocks until the service context is
// cancelled, then shuts everything down.
func (s *Service) Start() (runErr error) {
	if !s.transitionState(StateStopped, StateStarting) {
		s.logger().Warn("Service is already running")
		return types.ErrServiceIsRunning
	}

	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			runErr = fmt.Errorf("service panic: %v", r)
			s.logger().Error("Service run panic", zap.Stack(string(buf[:n])))
			s.setState(StateStopped)
		}
	}()

	return s.run()
}

func (s *Service) run() error {
	s.logger().Info("Starting service")

	ctx, cancel := context.WithTimeout(s.ctx, s.startTimeout)
	defer cancel()

	if err := s.startComponents(ctx); err != nil {
		s.setState(StateStopped)
		if stopErr := s.stopComponents(); stopErr != nil {
			s.logger().Error("Error during rollback of partially started components", zap.Error(stopErr))
		}
		return types.WrapError(err, "failed to start components")
	}

	s.setState(StateRunning)
	if s.handleSignals {
		s.setupSignalHandling()
	}

	s.wg.Add(1)
	go s.contextMonitor()

	s.logger().Info("Service started successfully")
	close(s.started)

	<-s.done

	if err := s.stopComponents(); err != nil {
		s.logger().Error("Error during service shutdown", zap.Error(err))
	}

	s.wg.Wait()
	s.setState(StateStopped)

	s.logger().Info("Service stopped gracefully")
	return nil
}

func (s *Service) Stop() error {
	if !s.transitionState(StateRunning, StateStopping) {
		s.logger().Warn("Service is not running")
		return types.ErrServiceIsNotRunning
	}

	s.logger().Info("Stopping service...")
	s.cancel()

	return nil
}

// Started is closed once every component is up.
func (s *Service) Started() <-chan struct{} {
	return s.started
}

func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) Context() context.Context {
	return s.ctx
}

func (s *Service) Container() *Container {
	return s.container
}

func (s *Service) IsRunning() bool {
	return s.getState() == StateRunning
}

func (s *Service) logger() types.Logger {
	return s.container.Logger
}

func (s *Service) getState() State {
	return s.state.Load().(State)
}

func (s *Service) setState(newState State) {
	s.state.Store(newState)
}

func (s *Service) transitionState(from, to State) bool {
	return s.state.CompareAndSwap(from, to)
}

func (s *Service) startComponents(ctx context.Context) error {
	c := s.container

	if err := c.Logger.Start(); err != nil {
		return types.WrapError(err, "failed to start logger")
	}

	g, gCtx := errgroup.WithContext(ctx)

	for name, component := range map[string]types.LifecycleManager{
		"metrics": c.Metrics,
		"cache":   c.Cache,
		"store":   c.Store,
	} {
		name, component := name, component
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}

			if err := component.Start(); err != nil {
				return types.Errorf(types.ErrComponentStartFailed, "%s: %w", name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		select {
		case <-ctx.Done():
			return types.NewErrorf("component startup timeout: %v", ctx.Err())
		default:
			return err
		}
	}

	if c.Health != nil {
		if err := c.Health.Start(); err != nil {
			s.logger().Error("Failed to start health manager", zap.Error(err))
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := c.HTTPServer.Start(); err != nil {
		return types.WrapError(err, "failed to start HTTP server")
	}

	if c.Cron != nil {
		if err := c.Cron.Start(); err != nil {
			s.logger().Error("Failed to start cron manager", zap.Error(err))
		}
	}

	s.logger().Info("All components started successfully")
	return nil
}

// stopComponents stops in reverse dependency order and skips anything not running.
func (s *Service) stopComponents() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	c := s.container
	var errs []error

	s.logger().Info("Stopping service components...")

	stop := func(name string, component types.LifecycleManager) error {
		if component == nil || !component.IsRunning() {
			return nil
		}
		if err := component.Stop(); err != nil {
			s.logger().Error("Failed to stop component", zap.String("component", name), zap.Error(err))
			return types.Errorf(types.ErrComponentStopFailed, "%s: %w", name, err)
		}
		return nil
	}

	if c.Cron != nil {
		if err := stop("cron", c.Cron); err != nil {
			errs = append(errs, err)
		}
	}

	if err := stop("http", c.HTTPServer); err != nil {
		errs = append(errs, err)
	}

	if c.Health != nil {
		if err := stop("health", c.Health); err != nil {
			errs = append(errs, err)
		}
	}

	var g errgroup.Group
	for name, component := range map[string]types.LifecycleManager{
		"cache":   c.Cache,
		"store":   c.Store,
		"metrics": c.Metrics,
	} {
		name, component := name, component
		g.Go(func() error {
			return stop(name, component)
		})
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- g.Wait() }()

	select {
	case err := <-waitErr:
		if err != nil {
			errs = append(errs, err)
		}
	case <-ctx.Done():
		s.logger().Warn("Component shutdown timeout, some components may not have stopped gracefully")
		errs = append(errs, ctx.Err())
	}

	if err := stop("logger", c.Logger); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return types.Errorf(types.ErrComponentStopFailed, "%d components failed to stop: %v", len(errs), errs)
	}

	return nil
}

func (s *Service) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			s.logger().Info("Received shutdown signal", zap.String("signal", sig.String()))
			if err := s.Stop(); err != nil {
				s.cancel()
			}
		case <-s.ctx.Done():
		}
	}()
}

func (s *Service) contextMonitor() {
	defer s.wg.Done()

	<-s.ctx.Done()
	s.transitionState(StateRunning, StateStopping)
	close(s.done)
}
