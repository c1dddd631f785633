package types

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

type CronManager interface {
	LifecycleManager
	Add(jobName, spec string, job func()) error
	Remove(jobName string) error
}

// CronJob receives a context cancelled on job timeout or scheduler shutdown.
type CronJob func(ctx context.Context) error

type JobEntry struct {
	ID           cron.EntryID
	Name         string
	Spec         string
	Job          CronJob
	AddedAt      time.Time
	LastRun      time.Time
	NextRun      time.Time
	LastDuration time.Duration
	LastError    error
	RunCount     int64
}
