package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"donations/internal/log"
)

// Scheduler runs a job on a cron schedule. Overlapping runs are skipped and a
// panicking job does not stop the schedule.
type Scheduler struct {
	schedule string
	job      func(ctx context.Context) error
	logger   *log.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewScheduler validates schedule, a standard five-field cron expression or a
// descriptor such as "@daily".
func NewScheduler(schedule string, job func(ctx context.Context) error, logger *log.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Scheduler{
		schedule: schedule,
		job:      job,
		logger:   logger.WithComponent(log.ComponentWorker),
	}, nil
}

// Start registers the job and starts the scheduler. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler is already running")
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	if _, err := c.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}
	c.Start()

	s.cron = c
	s.running = true
	s.logger.InfoContext(ctx, "Scheduled reconciliation", "schedule", s.schedule)
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.job(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Scheduled job failed", log.FieldError, err)
	}
}

// Stop stops the scheduler and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.running = false
	s.mu.Unlock()

	select {
	case <-c.Stop().Done():
		s.logger.InfoContext(ctx, "Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is started.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
