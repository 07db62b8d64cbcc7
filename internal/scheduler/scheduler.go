// Package scheduler runs named jobs on cron schedules in a fixed timezone.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tartampluch/birthday-bot/internal/config"
)

// Job is a unit of scheduled work. Returned errors are logged.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner whose schedules are evaluated in one location.
type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location

	mu  sync.Mutex
	ids map[string]cron.EntryID
}

// New returns a stopped Scheduler evaluating schedules in loc.
// A job still running when its next tick fires is skipped.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger := slogAdapter{slog.With(config.LogKeyComponent, config.CompScheduler)}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		loc: loc,
		ids: make(map[string]cron.EntryID),
	}
}

// DailySpec returns the five-field cron spec firing at hour:minute.
func DailySpec(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

// ScheduleDaily runs job every day at hour:minute.
func (s *Scheduler) ScheduleDaily(ctx context.Context, hour, minute int, name string, job Job) error {
	return s.Schedule(ctx, DailySpec(hour, minute), name, job)
}

// Schedule registers job under name with a standard cron spec or a
// descriptor like "@hourly". ctx is handed to every run.
func (s *Scheduler) Schedule(ctx context.Context, spec, name string, job Job) error {
	logger := slog.With(
		config.LogKeyComponent, config.CompScheduler,
		config.LogKeyJob, name,
	)

	id, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		logger.Info(config.MsgJobStarted)
		if err := job(ctx); err != nil {
			logger.Error(config.ErrJobFailed,
				config.LogKeyError, err,
				config.LogKeyDuration, time.Since(start).Milliseconds())
		}
	})
	if err != nil {
		return fmt.Errorf("%s: %s %q: %w", config.ErrScheduleJob, name, spec, err)
	}

	s.mu.Lock()
	if old, ok := s.ids[name]; ok {
		s.cron.Remove(old)
	}
	s.ids[name] = id
	s.mu.Unlock()

	logger.Info(config.MsgJobScheduled,
		config.LogKeySpec, spec,
		config.LogKeyTimezone, s.loc.String(),
		config.LogKeyNext, s.Next(name, time.Now()))
	return nil
}

// Next reports when the named job fires after from, or the zero time
// for an unknown name.
func (s *Scheduler) Next(name string, from time.Time) time.Time {
	s.mu.Lock()
	id, ok := s.ids[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return time.Time{}
	}
	return entry.Schedule.Next(from.In(s.loc))
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	slog.Info(config.MsgSchedulerStop, config.LogKeyComponent, config.CompScheduler)
}

// slogAdapter satisfies cron.Logger.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Info(msg string, keysAndValues ...any) {
	a.l.Debug(msg, keysAndValues...)
}

func (a slogAdapter) Error(err error, msg string, keysAndValues ...any) {
	a.l.Error(msg, append(keysAndValues, config.LogKeyError, err)...)
}
