// Package jobs runs periodic maintenance work on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/kv"
)

// Default schedules.
const (
	PurgeSchedule    = "@every 5m"
	LowStockSchedule = "0 8 * * *"
)

// Func is the body of a job. Each run gets its own context bounded by the
// job timeout.
type Func func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	logger  zerolog.Logger
	timeout time.Duration
	names   []string
}

// cronLogger routes the cron library's own logging through zerolog. Its
// info chatter goes to debug.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// NewScheduler returns a stopped scheduler. A panicking job is logged and
// recovered, and later runs go ahead.
func NewScheduler(logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "jobs").Logger()
	cl := cronLogger{log: logger}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		logger:  logger,
		timeout: time.Minute,
	}
}

// Add registers fn under name. A run that returns an error is logged and the
// schedule continues.
func (s *Scheduler) Add(name, spec string, fn Func) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, fn) }); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.names = append(s.names, name)
	return nil
}

func (s *Scheduler) run(name string, fn Func) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.Error().Err(err).Str("job", name).Msg("job failed")
		return
	}
	s.logger.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
}

// Jobs lists registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	return append([]string(nil), s.names...)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Strs("jobs", s.names).Msg("scheduler started")
}

// Stop halts the schedule and waits for running jobs or ctx, whichever
// comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("scheduler stop timed out")
	}
}

// PurgeExpired evicts expired keys from stores that do not expire them
// on their own.
func PurgeExpired(p kv.Purger, logger zerolog.Logger) Func {
	return func(context.Context) error {
		if n := p.Purge(time.Now()); n > 0 {
			logger.Debug().Int("purged", n).Msg("expired keys removed")
		}
		return nil
	}
}
