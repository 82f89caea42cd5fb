// Package schedule runs background maintenance (dataset reindexing, cache
// pruning) on cron specs while the server is up.
package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

type CronScheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
	jobs    map[string]Job
	guards  map[string]*atomic.Bool
	ctx     context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
		jobs:    make(map[string]Job),
		guards:  make(map[string]*atomic.Bool),
	}
}

// AddJob schedules job under spec. An empty spec leaves the job
// unscheduled; it can still be triggered through RunNow.
func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	if _, ok := c.guards[name]; ok {
		return fmt.Errorf("job %s already registered", name)
	}
	guard := &atomic.Bool{}
	c.jobs[name] = job
	c.guards[name] = guard
	if spec == "" {
		return nil
	}
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", name), zap.String("spec", spec))
	entryID, err := c.cron.AddFunc(spec, func() {
		c.runGuarded(c.baseContext(), job, guard, spec)
	})
	if err != nil {
		delete(c.jobs, name)
		delete(c.guards, name)
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	c.entries[name] = entryID
	logger.Info("job scheduled")
	return nil
}

// RunNow executes a registered job synchronously. It reports false when the
// job is unknown or already running.
func (c *CronScheduler) RunNow(ctx context.Context, name string) bool {
	job, ok := c.jobs[name]
	if !ok {
		return false
	}
	return c.runGuarded(ctx, job, c.guards[name], "manual")
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.cron.Start()
}

// Stop waits for running jobs to return.
func (c *CronScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

func (c *CronScheduler) baseContext() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c *CronScheduler) runGuarded(ctx context.Context, job Job, running *atomic.Bool, spec string) bool {
	logger := logutil.GetLogger(ctx).With(
		zap.String("job", job.Name()),
		zap.String("spec", spec),
	)
	if !running.CompareAndSwap(false, true) {
		logger.Info("job skipped: still running")
		return false
	}
	defer running.Store(false)

	start := time.Now()
	logger.Info("job started")
	err := job.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
		return true
	}
	logger.Info("job finished", zap.Duration("duration", elapsed))
	return true
}
