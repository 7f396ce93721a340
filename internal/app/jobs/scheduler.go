// Package jobs runs the periodic maintenance tasks: the fine payment poller
// and the overdue sweeper.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task is one unit of periodic work
type Task func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	task     Task
}

// Scheduler runs each registered job on its own ticker. A job never overlaps
// with itself; a tick that arrives while it is still running is dropped.
type Scheduler struct {
	jobs   []job
	logger zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates an empty scheduler
func NewScheduler(logger zerolog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers a job; a non-positive interval disables it
func (s *Scheduler) Add(name string, interval time.Duration, task Task) {
	if interval <= 0 {
		s.logger.Info().Str("job", name).Msg("Job disabled")
		return
	}
	s.jobs = append(s.jobs, job{name: name, interval: interval, task: task})
}

// Start launches every job until ctx is cancelled or Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
}

// Stop cancels the jobs and waits for running tasks to return
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	s.logger.Info().Str("job", j.name).Dur("interval", j.interval).Msg("Job started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str("job", j.name).Msg("Job stopped")
			return
		case <-ticker.C:
			s.run(ctx, j)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, j job) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("job", j.name).Interface("panic", r).Msg("Job panicked")
		}
	}()

	if err := j.task(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Str("job", j.name).Msg("Job failed")
		return
	}
	s.logger.Debug().Str("job", j.name).Dur("took", time.Since(started)).Msg("Job finished")
}
