// Package task runs periodic housekeeping on a cron schedule.
package task

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"
	"github.com/robfig/cron/v3"
)

// EveryMinute fires at second zero of every minute.
const EveryMinute = "0 * * * * *"

// Job is a named unit of scheduled work.
type Job interface {
	Name() string
	Run()
}

// SweepJob calls a sweep function and logs how many entries it removed.
type SweepJob struct {
	name   string
	sweep  func() int
	logger *slog.Logger
}

func NewSweepJob(name string, sweep func() int, logger *slog.Logger) *SweepJob {
	return &SweepJob{name: name, sweep: sweep, logger: logger}
}

func (j *SweepJob) Name() string {
	return j.name
}

func (j *SweepJob) Run() {
	if removed := j.sweep(); removed > 0 {
		j.logger.Debug("swept expired entries", "job_name", j.name, "removed", removed)
	}
}

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	logger = logger.With("system", "scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(
				recoverWrapper(logger),
				loggingWrapper(logger),
				cron.SkipIfStillRunning(cron.DiscardLogger),
			),
		),
		logger: logger,
	}
}

// Add schedules job with a six-field cron spec.
func (s *Scheduler) Add(spec string, job Job) error {
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return xerrors.Newf("schedule %s: %w", job.Name(), err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return xerrors.New(ctx.Err())
	}
}

func loggingWrapper(logger *slog.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			jobLogger := logger.With(
				slog.String("job_name", jobName(j)),
				slog.String("execution_id", uuid.NewString()),
			)
			start := time.Now()
			j.Run()
			jobLogger.Debug("job finished", slog.Duration("duration", time.Since(start)))
		})
	}
}

func recoverWrapper(logger *slog.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("job panicked",
						slog.String("job_name", jobName(j)),
						slog.Any("panic", r),
						slog.String("stack_trace", string(debug.Stack())),
					)
				}
			}()
			j.Run()
		})
	}
}

func jobName(j cron.Job) string {
	if named, ok := j.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "anonymous"
}
