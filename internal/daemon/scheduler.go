package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Scheduler wraps gocron for the daily sweep trigger. The clock is shared
// with the dispatcher so tests can drive both from one fake clock.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance on the given clock. Job
// wall-clock times are evaluated in loc, so the daily sweep fires at HH:MM
// in the configured timezone rather than the host's.
func NewScheduler(clock clockwork.Clock, loc *time.Location) (*Scheduler, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	s, err := gocron.NewScheduler(gocron.WithClock(clock), gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleDaily schedules task every day at the given wall-clock time.
// Returns the job ID for later management.
func (s *Scheduler) ScheduleDaily(name string, hour, minute int, task func()) (uuid.UUID, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return uuid.Nil, fmt.Errorf("invalid time of day %02d:%02d", hour, minute)
	}
	job, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), uint(minute), 0))),
		gocron.NewTask(task),
		gocron.WithName(name),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create daily job: %w", err)
	}
	return job.ID(), nil
}

// ScheduleEvery schedules task on a fixed interval. Used by tests and by
// deployments that prefer interval sweeps over the daily trigger.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task func()) (uuid.UUID, error) {
	if interval <= 0 {
		return uuid.Nil, fmt.Errorf("interval must be positive")
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create interval job: %w", err)
	}
	return job.ID(), nil
}

// Remove cancels a scheduled job.
func (s *Scheduler) Remove(id uuid.UUID) error {
	return s.scheduler.RemoveJob(id)
}
