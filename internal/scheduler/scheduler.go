package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one periodic task. Run errors are logged, never fatal; the next tick
// retries. Timeout bounds a single run and defaults to the interval.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler triggers each registered job on its own fixed interval. Jobs run
// independently and may overlap in wall-clock time; no mutual exclusion is
// imposed between different jobs.
type Scheduler struct {
	jobs   []Job
	logger *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start runs every job immediately, then on its interval, until ctx is
// cancelled. It blocks until all job loops have stopped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "jobs", len(s.jobs))

	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	wg.Wait()

	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	s.runJob(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runJob(ctx, job)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = job.Interval
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := job.Run(runCtx); err != nil {
		s.logger.Error("job failed", "job", job.Name, "error", err)
	}
}
