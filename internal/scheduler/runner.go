// Package scheduler runs the recurring sweeps. Each job gets its own ticker
// goroutine; overlapping runs of different jobs are expected and safe because
// every sweep's mutations are conditional at the storage layer.
package scheduler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Job is one recurring sweep
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner drives a set of jobs until its context is canceled
type Runner struct {
	jobs   []Job
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewRunner creates a runner for the given jobs
func NewRunner(logger *slog.Logger, jobs ...Job) *Runner {
	return &Runner{
		jobs:   jobs,
		logger: logger,
	}
}

// Start launches one goroutine per job and returns immediately
func (r *Runner) Start(ctx context.Context) {
	for _, job := range r.jobs {
		job := job
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.runJob(ctx, job)
		}()
	}
}

// Wait blocks until all job goroutines have exited
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) runJob(ctx context.Context, job Job) {
	logger := r.logger.With("job", job.Name)
	logger.Info("Starting scheduled job", "interval", job.Interval.String())

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Scheduled job stopping due to context cancellation.")
			return
		case <-ticker.C:
			r.runOnce(ctx, job, logger)
		}
	}
}

// runOnce isolates a single tick: a panic or error in one run is logged and
// the next tick proceeds normally.
func (r *Runner) runOnce(ctx context.Context, job Job, logger *slog.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Scheduled job panicked",
				"panic", rec, "stack", string(debug.Stack()))
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		logger.Error("Scheduled job run failed", "error", err, "duration", time.Since(start).String())
		return
	}
	logger.Debug("Scheduled job run finished", "duration", time.Since(start).String())
}
