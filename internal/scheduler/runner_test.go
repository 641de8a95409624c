package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestSchedulerLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRunner_RunsJobsUntilCanceled(t *testing.T) {
	var runs atomic.Int32

	runner := NewRunner(newTestSchedulerLogger(), Job{
		Name:     "test_sweep",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	runner.Start(ctx)

	assert.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	runner.Wait()

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after cancellation")
}

func TestRunner_ErrorDoesNotStopJob(t *testing.T) {
	var runs atomic.Int32

	runner := NewRunner(newTestSchedulerLogger(), Job{
		Name:     "flaky_sweep",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("sweep failed")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner.Start(ctx)

	assert.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestRunner_PanicIsIsolatedToOneTick(t *testing.T) {
	var runs atomic.Int32

	runner := NewRunner(newTestSchedulerLogger(), Job{
		Name:     "panicky_sweep",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			panic("boom")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner.Start(ctx)

	assert.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestRunner_MultipleJobsRunIndependently(t *testing.T) {
	var fast, slow atomic.Int32

	runner := NewRunner(newTestSchedulerLogger(),
		Job{
			Name:     "fast_sweep",
			Interval: 5 * time.Millisecond,
			Run: func(ctx context.Context) error {
				fast.Add(1)
				return nil
			},
		},
		Job{
			Name:     "slow_sweep",
			Interval: 50 * time.Millisecond,
			Run: func(ctx context.Context) error {
				slow.Add(1)
				return nil
			},
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner.Start(ctx)

	assert.Eventually(t, func() bool {
		return fast.Load() >= 5 && slow.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)
}
