package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oshokin/vm-maintenance/internal/logger"
)

var errNoJobs = errors.New("no jobs to schedule")

// Job is a named procedure with a standard five-field cron schedule.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler owns a cron instance and the jobs registered on it.
type Scheduler struct {
	cron *cron.Cron
	ids  map[string]cron.EntryID
}

// New validates every schedule and registers the jobs. A job that is still
// running when its next activation comes is skipped for that activation.
func New(ctx context.Context, jobs ...*Job) (*Scheduler, error) {
	if len(jobs) == 0 {
		return nil, errNoJobs
	}

	log := &cronLogger{ctx: logger.WithName(ctx, "scheduler")}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.Local),
			cron.WithLogger(log),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
		ids: make(map[string]cron.EntryID, len(jobs)),
	}

	for _, job := range jobs {
		id, err := s.cron.AddFunc(job.Schedule, wrap(ctx, job))
		if err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", job.Name, job.Schedule, err)
		}

		s.ids[job.Name] = id
	}

	return s, nil
}

// Next reports the next activation of the named job, or the zero time if the
// scheduler is not running or the job is unknown.
func (s *Scheduler) Next(name string) time.Time {
	id, ok := s.ids[name]
	if !ok {
		return time.Time{}
	}

	return s.cron.Entry(id).Next
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()

	for name := range s.ids {
		logger.InfoKV(ctx, "Job scheduled", "job", name, "next", s.Next(name))
	}

	<-ctx.Done()
	<-s.cron.Stop().Done()

	logger.Info(ctx, "Scheduler stopped")

	return nil
}

// wrap adapts a job to a cron func that logs its outcome.
func wrap(ctx context.Context, job *Job) func() {
	return func() {
		jobCtx := logger.WithKV(ctx, "job", job.Name)

		started := time.Now()

		logger.Info(jobCtx, "Job started")

		if err := job.Run(jobCtx); err != nil {
			logger.ErrorKV(jobCtx, "Job failed", "error", err, "elapsed", time.Since(started))

			return
		}

		logger.InfoKV(jobCtx, "Job finished", "elapsed", time.Since(started))
	}
}

// cronLogger forwards cron's own messages to the context logger.
type cronLogger struct {
	ctx context.Context //nolint:containedctx // cron.Logger has no context parameter.
}

// Info logs routine cron messages at debug level.
func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	logger.DebugKV(l.ctx, msg, keysAndValues...)
}

// Error logs cron failures such as recovered panics.
func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.ErrorKV(l.ctx, msg, append(keysAndValues, "error", err)...)
}
