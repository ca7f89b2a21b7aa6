package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/scriptboard/backend/internal/service"
)

// Pruner drops expired history for every learner.
type Pruner interface {
	PruneAll(ctx context.Context, workers int) (service.PruneReport, error)
}

// SessionSweeper drops quiz sessions that have been idle for too long.
type SessionSweeper interface {
	Sweep(maxIdle time.Duration) int
	Len() int
}

// Scheduler runs periodic history maintenance so history stays bounded
// even for learners who stop taking quizzes. It can also sweep idle quiz
// sessions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pruner    Pruner
	interval  time.Duration
	workers   int
	logger    *slog.Logger

	sweeper    SessionSweeper
	sweepEvery time.Duration
	sessionTTL time.Duration
}

func New(pruner Pruner, interval time.Duration, workers int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		pruner:    pruner,
		interval:  interval,
		workers:   workers,
		logger:    logger,
	}
}

// WithSessionSweep adds a job that runs every `every` and removes quiz
// sessions idle for longer than ttl. Call it before Start.
func (s *Scheduler) WithSessionSweep(sweeper SessionSweeper, every, ttl time.Duration) *Scheduler {
	s.sweeper = sweeper
	s.sweepEvery = every
	s.sessionTTL = ttl
	return s
}

// Start schedules the jobs and runs each once right away. It does not
// block.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.prune); err != nil {
		return fmt.Errorf("schedule history prune: %w", err)
	}
	if s.sweeper != nil {
		if _, err := s.scheduler.Every(s.sweepEvery).Do(s.sweep); err != nil {
			return fmt.Errorf("schedule session sweep: %w", err)
		}
	}
	s.scheduler.StartAsync()

	s.logger.Info("scheduler started",
		"prune_interval", s.interval.String(),
		"session_ttl", s.sessionTTL.String(),
	)
	return nil
}

// Stop terminates all scheduled jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RunNow prunes synchronously, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) (service.PruneReport, error) {
	return s.pruner.PruneAll(ctx, s.workers)
}

func (s *Scheduler) prune() {
	if _, err := s.RunNow(context.Background()); err != nil {
		s.logger.Error("scheduled history prune failed", "error", err)
	}
}

func (s *Scheduler) sweep() {
	removed := s.sweeper.Sweep(s.sessionTTL)
	s.logger.Debug("session sweep finished",
		"removed", removed,
		"live", s.sweeper.Len(),
	)
}
