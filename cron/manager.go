package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-campaigns/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

const (
	CacheMaintenanceJob = "cache_maintenance"
	StoreMaintenanceJob = "store_maintenance"
)

type Manager struct {
	ctx             context.Context
	cancel          context.CancelFunc
	config          types.ConfigManager
	logger          types.Logger
	metrics         types.MetricsManager
	cron            *cron.Cron
	timezone        *time.Location
	jobs            map[string]*types.JobEntry
	state           atomic.Value
	mu              sync.RWMutex
	activeJobs      map[string]context.CancelFunc
	activeJobsMu    sync.Mutex
	shutdown        chan struct{}
	shutdownOnce    sync.Once
	shutdownTimeout time.Duration
	jobTimeout      time.Duration
}

func NewManager(ctx context.Context, config types.ConfigManager, logger types.Logger, metrics types.MetricsManager) (*Manager, error) {
	timezone := time.UTC
	if cronConfig := config.GetConfig().Cron; cronConfig != nil && cronConfig.Timezone != "" {
		location, err := time.LoadLocation(cronConfig.Timezone)
		if err != nil {
			return nil, types.Errorf(types.ErrConfigValidateFailed, "cron timezone %q: %w", cronConfig.Timezone, err)
		}
		timezone = location
	}

	cronL := cronLogger{
		logger: logger,
	}

	cronOptions := []cron.Option{
		cron.WithLocation(timezone),
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronL), cron.SkipIfStillRunning(cronL)),
	}

	managerCtx, cancel := context.WithCancel(ctx)

	manager := &Manager{
		ctx:             managerCtx,
		cancel:          cancel,
		config:          config,
		logger:          logger,
		metrics:         metrics,
		cron:            cron.New(cronOptions...),
		jobs:            make(map[string]*types.JobEntry),
		timezone:        timezone,
		activeJobs:      make(map[string]context.CancelFunc),
		shutdown:        make(chan struct{}),
		shutdownTimeout: 10 * time.Second,
		jobTimeout:      5 * time.Minute,
	}

	manager.state.Store(StateStopped)

	return manager, nil
}

func (m *Manager) Add(jobName, spec string, job func()) error {
	if job == nil {
		return types.ErrCronJobIsNil
	}

	return m.AddJob(jobName, spec, func(context.Context) error {
		job()
		return nil
	})
}

func (m *Manager) AddJob(jobName, spec string, job types.CronJob) error {
	if jobName == "" {
		return types.ErrCronJobNameIsEmpty
	}

	if spec == "" {
		return types.ErrCronExpressionInvalid
	}

	if job == nil {
		return types.ErrCronJobIsNil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.shutdown:
		return types.ErrCronSchedulerStopped
	default:
	}

	if _, exists := m.jobs[jobName]; exists {
		return types.ErrCronJobExists
	}

	entryID, err := m.cron.AddFunc(spec, func() { m.run(jobName) })
	if err != nil {
		return types.Errorf(types.ErrCronExpressionInvalid, "%s: %w", spec, err)
	}

	entry := &types.JobEntry{
		ID:      entryID,
		Name:    jobName,
		Spec:    spec,
		Job:     job,
		AddedAt: time.Now(),
	}

	if cronEntry := m.cron.Entry(entryID); cronEntry.ID != 0 {
		entry.NextRun = cronEntry.Next
	}

	m.jobs[jobName] = entry

	m.logger.Info("Cron job added",
		zap.String("job_name", jobName),
		zap.String("spec", spec))

	return nil
}

// AddMaintenance schedules target.Maintain under the given job name.
func (m *Manager) AddMaintenance(jobName, spec string, target types.Maintainer) error {
	if target == nil {
		return types.ErrCronJobIsNil
	}

	return m.AddJob(jobName, spec, target.Maintain)
}

// ScheduleMaintenance binds the configured cron.jobs entries to their targets.
// Configured jobs without a target and targets without a schedule are skipped.
func (m *Manager) ScheduleMaintenance(targets map[string]types.Maintainer) error {
	cronConfig := m.config.GetConfig().Cron
	if cronConfig == nil {
		return nil
	}

	names := make([]string, 0, len(cronConfig.Jobs))
	for name := range cronConfig.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target, ok := targets[name]
		if !ok || target == nil {
			m.logger.Debug("No maintenance target for cron job", zap.String("job_name", name))
			continue
		}

		if err := m.AddMaintenance(name, cronConfig.Jobs[name], target); err != nil {
			return types.WrapError(err, fmt.Sprintf("failed to schedule %s", name))
		}
	}

	return nil
}

func (m *Manager) Remove(jobName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.jobs[jobName]
	if !exists {
		return types.ErrCronJobNotFound
	}

	m.cron.Remove(entry.ID)
	delete(m.jobs, jobName)

	m.logger.Info("Cron job removed", zap.String("job_name", jobName))
	return nil
}

// Run executes a registered job immediately on the calling goroutine.
func (m *Manager) Run(jobName string) error {
	m.mu.RLock()
	_, exists := m.jobs[jobName]
	m.mu.RUnlock()

	if !exists {
		return types.ErrCronJobNotFound
	}

	return m.run(jobName)
}

// Jobs returns a snapshot of the registered jobs ordered by name.
func (m *Manager) Jobs() []types.JobEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]types.JobEntry, 0, len(m.jobs))
	for _, entry := range m.jobs {
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func (m *Manager) Start() error {
	if !m.transitionState(StateStopped, StateStarting) {
		return types.ErrCronIsRunning
	}

	m.cron.Start()
	m.setState(StateRunning)

	m.setSchedulerStatus(1)
	m.logger.Info("Cron manager started", zap.String("timezone", m.timezone.String()))
	return nil
}

func (m *Manager) Stop() error {
	if !m.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	var err error
	m.shutdownOnce.Do(func() {
		close(m.shutdown)

		err = m.stop()
		m.cancel()
		m.setSchedulerStatus(0)
		m.setState(StateStopped)

		if err == nil {
			m.logger.Info("Cron scheduler stopped gracefully")
		}
	})

	return err
}

func (m *Manager) IsRunning() bool {
	return m.getState() == StateRunning
}

func (m *Manager) getState() State {
	return m.state.Load().(State)
}

func (m *Manager) setState(newState State) {
	m.state.Store(newState)
}

func (m *Manager) transitionState(from, to State) bool {
	return m.state.CompareAndSwap(from, to)
}

func (m *Manager) run(jobName string) error {
	select {
	case <-m.shutdown:
		m.logger.Info("Job skipped due to shutdown", zap.String("job_name", jobName))
		return types.ErrCronSchedulerStopped
	default:
	}

	m.mu.Lock()
	entry, exists := m.jobs[jobName]
	if !exists {
		m.mu.Unlock()
		return types.ErrCronJobNotFound
	}
	job := entry.Job
	startTime := time.Now()
	entry.LastRun = startTime
	m.mu.Unlock()

	m.logger.Debug("Cron job started", zap.String("job_name", jobName))

	jobCtx, cancel := context.WithTimeout(m.ctx, m.jobTimeout)
	defer cancel()

	m.registerActiveJob(jobName, cancel)
	defer m.releaseActiveJob(jobName)

	m.activeJobsGauge().Inc()
	defer m.activeJobsGauge().Dec()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- types.Errorf(types.ErrCronJobFailed, "job panic: %v", r)
			}
		}()
		done <- job(jobCtx)
	}()

	var err error
	select {
	case err = <-done:
	case <-jobCtx.Done():
		if types.IsError(jobCtx.Err(), context.DeadlineExceeded) {
			err = types.Errorf(types.ErrCronJobTimeout, "timeout after %v", m.jobTimeout)
		} else {
			err = types.WrapError(jobCtx.Err(), "job canceled")
		}
	}

	duration := time.Since(startTime)

	result := "success"
	if err != nil {
		result = "error"
	}

	m.metrics.Counter("cron_job_executions_total", map[string]string{
		"job_name": jobName,
		"result":   result,
	}).Inc()
	m.metrics.Histogram("cron_job_duration_seconds",
		[]float64{0.01, 0.1, 1.0, 10.0, 60.0, 300.0},
		map[string]string{"job_name": jobName},
	).Observe(duration.Seconds())

	m.mu.Lock()
	if entry, exists := m.jobs[jobName]; exists {
		entry.LastDuration = duration
		entry.LastError = err
		entry.RunCount++
		if cronEntry := m.cron.Entry(entry.ID); cronEntry.ID != 0 {
			entry.NextRun = cronEntry.Next
		}
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("Cron job failed",
			zap.String("job_name", jobName),
			zap.Duration("duration", duration),
			zap.Error(err))
	} else {
		m.logger.Info("Cron job completed",
			zap.String("job_name", jobName),
			zap.Duration("duration", duration))
	}

	return err
}

func (m *Manager) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m.activeJobsMu.Lock()
		defer m.activeJobsMu.Unlock()

		for jobName, cancel := range m.activeJobs {
			cancel()
			m.logger.Debug("Cancelled job during shutdown", zap.String("job_name", jobName))
		}
		return nil
	})

	g.Go(func() error {
		stopCtx := m.cron.Stop()

		select {
		case <-stopCtx.Done():
			return nil
		case <-gCtx.Done():
			return types.ErrCronJobTimeout
		}
	})

	if err := g.Wait(); err != nil {
		m.logger.Warn("Cron manager stop timeout, some jobs may not have finished", zap.Error(err))
		return err
	}

	return nil
}

func (m *Manager) registerActiveJob(jobName string, cancel context.CancelFunc) {
	m.activeJobsMu.Lock()
	defer m.activeJobsMu.Unlock()

	m.activeJobs[jobName] = cancel
}

func (m *Manager) releaseActiveJob(jobName string) {
	m.activeJobsMu.Lock()
	defer m.activeJobsMu.Unlock()

	delete(m.activeJobs, jobName)
}

func (m *Manager) activeJobsGauge() types.Gauge {
	return m.metrics.Gauge("cron_active_jobs", nil)
}

func (m *Manager) setSchedulerStatus(value float64) {
	m.metrics.Gauge("cron_scheduler_running", nil).Set(value)
}

type cronLogger struct {
	logger types.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(fields(keysAndValues), zap.Error(err))...)
}

func fields(keysAndValues []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out = append(out, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
	}
	return out
}
