package core

import (
	"context"
	"log/slog"
	"time"

	"postcardgo/pkg/config"
)

// Scheduler manages the central heartbeat and scheduled jobs. Each tick it
// asks every job whether it wants to fire; jobs run on their own goroutine
// and guard against re-entry themselves.
type Scheduler struct {
	cfg  *config.Config
	jobs []Job
}

// NewScheduler creates a new Scheduler.
func NewScheduler(cfg *config.Config) *Scheduler {
	return &Scheduler{
		cfg:  cfg,
		jobs: []Job{},
	}
}

// AddJob registers a job.
func (s *Scheduler) AddJob(j Job) {
	s.jobs = append(s.jobs, j)
}

// Start runs the main loop. It blocks until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	interval := time.Duration(s.cfg.Scheduler.TickInterval)
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Scheduler started", "interval", interval, "jobs", len(s.jobs))

	// Fire once immediately so queued work doesn't wait a full interval
	s.tick(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	for _, job := range s.jobs {
		if job.ShouldFire(now) {
			// Fire and forget
			go job.Run(ctx)
		}
	}
}
