package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/applywizz/portal/internal/app/system"
	"github.com/applywizz/portal/pkg/logger"
)

var _ system.Service = (*Scheduler)(nil)

// Scheduler runs periodic maintenance jobs on cron specs.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates an idle scheduler.
func NewScheduler(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("scheduler")
	}
	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log))))
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{cron: c, log: log, ctx: ctx, cancel: cancel}
}

// Add schedules fn under spec ("@every 15m", "0 * * * *"). Each run is
// bounded by timeout.
func (s *Scheduler) Add(name, spec string, timeout time.Duration, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		parent := s.ctx
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		start := time.Now()
		entry := s.log.WithField("job", name)
		if err := fn(ctx); err != nil {
			entry.WithError(err).Warn("scheduled job failed")
			return
		}
		entry.WithField("duration", time.Since(start).String()).Debug("scheduled job finished")
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) Name() string { return "scheduler" }

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
	s.log.WithField("jobs", len(s.cron.Entries())).Info("scheduler started")
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	cancel()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("scheduler stopped")
	return nil
}
