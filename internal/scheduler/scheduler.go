// Package scheduler runs periodic background jobs on a fixed tick with
// single-flight semantics: a tick that fires while the previous run is
// still in progress is skipped, never queued.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/codearena/arena-api/internal/observability"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler drives a Job on a fixed interval.
type Scheduler struct {
	name     string
	interval time.Duration
	job      Job
	logger   zerolog.Logger
	inFlight atomic.Bool
	wg       sync.WaitGroup

	// ticker is injectable for tests; it returns the tick channel and a
	// stop function.
	ticker func(interval time.Duration) (<-chan time.Time, func())
}

// New constructs a scheduler for the given job.
func New(name string, interval time.Duration, job Job, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Scheduler{
		name:     name,
		interval: interval,
		job:      job,
		logger:   logger.With().Str("component", "scheduler").Str("job", name).Logger(),
		ticker: func(interval time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(interval)
			return t.C, t.Stop
		},
	}
}

// Run blocks until the context is cancelled, firing the job once per
// interval. Each run happens on its own goroutine so a slow run never
// delays the tick loop; overlapping runs are skipped instead.
func (s *Scheduler) Run(ctx context.Context) {
	ticks, stop := s.ticker(s.interval)
	defer stop()

	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-ticks:
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("previous run still in progress, skipping tick")
		observability.SchedulerSkips().WithLabelValues(s.name).Inc()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)

		start := time.Now()
		err := s.job(ctx)
		duration := time.Since(start)
		observability.SchedulerRuns().WithLabelValues(s.name, outcomeLabel(err)).Inc()
		observability.SchedulerDuration().WithLabelValues(s.name).Observe(duration.Seconds())

		if err != nil {
			s.logger.Error().Err(err).Dur("duration", duration).Msg("scheduled run failed")
			return
		}
		s.logger.Debug().Dur("duration", duration).Msg("scheduled run completed")
	}()
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
