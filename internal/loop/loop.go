/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package loop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/diagridio/go-shell-cron/api"
	cronerrors "github.com/diagridio/go-shell-cron/api/errors"
	"github.com/diagridio/go-shell-cron/history"
	"github.com/diagridio/go-shell-cron/internal/grave"
	"github.com/diagridio/go-shell-cron/internal/job"
	"github.com/diagridio/go-shell-cron/internal/metrics"
	"github.com/diagridio/go-shell-cron/internal/queue"
	"github.com/diagridio/go-shell-cron/internal/runner"
	"github.com/diagridio/go-shell-cron/internal/scheduler"
)

// ErrNoJobs is returned by Tick when the active set is empty.
var ErrNoJobs = errors.New("no active jobs")

// ReasonUnsatisfiable is the removal reason of jobs whose schedule can no
// longer fire.
const ReasonUnsatisfiable = "unsatisfiable"

const defaultAppendTimeout = 10 * time.Second

// Options are the options for the scheduler loop.
type Options struct {
	// Log is the logger to use for logging.
	Log logr.Logger

	// Clock is the clock used to wait for jobs. Defaults to the real clock.
	Clock clock.Clock

	// Jobs is the initial active set. Names must be unique.
	Jobs []*job.Job

	// Builder recomputes the next run of a job after it fires.
	Builder *scheduler.Builder

	// Runner executes job commands.
	Runner runner.Interface

	// Sink receives one history entry per execution.
	Sink history.Sink

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Yard records jobs removed from the active set. Optional.
	Yard *grave.Yard

	// AppendTimeout bounds each history append. Defaults to 10 seconds.
	AppendTimeout time.Duration
}

// Loop fires jobs one at a time in next run order. It is driven by a single
// goroutine and is not safe for concurrent use.
type Loop struct {
	log           logr.Logger
	clock         clock.Clock
	builder       *scheduler.Builder
	runner        runner.Interface
	sink          history.Sink
	metrics       *metrics.Metrics
	yard          *grave.Yard
	appendTimeout time.Duration

	queue   *queue.Queue
	running atomic.Bool
}

func New(opts Options) (*Loop, error) {
	if opts.Runner == nil {
		return nil, errors.New("runner is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("history sink is required")
	}

	q, err := queue.New(opts.Jobs...)
	if err != nil {
		return nil, fmt.Errorf("failed to build active set: %w", err)
	}

	l := &Loop{
		log:           opts.Log.WithName("loop"),
		clock:         opts.Clock,
		builder:       opts.Builder,
		runner:        opts.Runner,
		sink:          opts.Sink,
		metrics:       opts.Metrics,
		yard:          opts.Yard,
		appendTimeout: opts.AppendTimeout,
		queue:         q,
	}
	if l.clock == nil {
		l.clock = clock.RealClock{}
	}
	if l.builder == nil {
		l.builder = scheduler.NewBuilder(scheduler.BuilderOptions{Clock: l.clock})
	}
	if l.yard == nil {
		l.yard = grave.New()
	}
	if l.appendTimeout <= 0 {
		l.appendTimeout = defaultAppendTimeout
	}

	l.metrics.SetJobsActive(q.Len())

	return l, nil
}

// Run calls Tick until ctx is cancelled. With no active jobs it blocks until
// ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("loop already running")
	}
	defer l.running.Store(false)

	l.log.Info("Scheduler loop started", "jobs", l.queue.Len())
	defer l.log.Info("Scheduler loop stopped")

	for {
		err := l.Tick(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrNoJobs):
			l.log.Info("No active jobs, waiting for shutdown")
			<-ctx.Done()
			return nil
		case err != nil:
			return err
		}
	}
}

// Tick waits for the job with the earliest next run, runs it to completion,
// records the outcome and reschedules the job. Execution failures are
// recorded, not returned. Tick only returns an error if there are no jobs or
// ctx is cancelled while waiting.
func (l *Loop) Tick(ctx context.Context) error {
	j := l.queue.Peek()
	if j == nil {
		return ErrNoJobs
	}

	if err := l.wait(ctx, j.NextRun); err != nil {
		return err
	}

	l.queue.Pop()

	firedAt := l.clock.Now()
	l.metrics.ObserveLag(firedAt.Sub(j.NextRun))

	log := l.log.WithValues("job", j.Name)
	log.V(1).Info("Firing job", "scheduled", j.NextRun)

	res := l.runner.Run(j.Command)
	entry := newEntry(j.Name, firedAt, res)

	l.metrics.ObserveRun(j.Name, entry.Status, l.clock.Since(firedAt))
	if res.Err != nil {
		log.Info("Job failed", "error", res.Err.Error())
	} else {
		log.V(1).Info("Job succeeded")
	}

	l.append(ctx, log, entry)
	l.reschedule(log, j)

	return nil
}

// Jobs returns a copy of the active set in firing order. Must not be called
// concurrently with Run.
func (l *Loop) Jobs() []job.Job {
	return l.queue.Snapshot()
}

// Yard returns the record of jobs removed from the active set.
func (l *Loop) Yard() *grave.Yard {
	return l.yard
}

func (l *Loop) wait(ctx context.Context, until time.Time) error {
	d := until.Sub(l.clock.Now())
	if d <= 0 {
		return ctx.Err()
	}

	timer := l.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) append(ctx context.Context, log logr.Logger, entry api.HistoryEntry) {
	// The record of a command that already ran is written even if shutdown
	// has begun.
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.appendTimeout)
	defer cancel()

	if err := l.sink.Append(actx, entry); err != nil {
		l.metrics.HistoryAppendFailed()
		log.Error(err, "Failed to append history record")
	}
}

// reschedule computes the next run from the current instant, but never from
// the minute the job just fired in, so a command that finishes within its own
// minute does not fire twice.
func (l *Loop) reschedule(log logr.Logger, j *job.Job) {
	from := l.clock.Now()
	if floor := j.NextRun.Add(time.Minute); from.Before(floor) {
		from = floor
	}

	next, err := l.builder.NextAfter(j.Spec, from)
	if err != nil {
		reason := err.Error()
		if cronerrors.IsScheduleUnsatisfiable(err) {
			reason = ReasonUnsatisfiable
		}
		log.Error(err, "Removing job from the active set", "schedule", j.Schedule)
		l.yard.Bury(j.Name, reason, l.clock.Now())
		l.metrics.JobRemoved(reason)
		l.metrics.SetJobsActive(l.queue.Len())
		return
	}

	j.NextRun = next
	if err = l.queue.Push(j); err != nil {
		log.Error(err, "Failed to reschedule job")
		return
	}
	log.V(1).Info("Rescheduled job", "next", next)
}

func newEntry(name string, firedAt time.Time, res *runner.Result) api.HistoryEntry {
	entry := api.HistoryEntry{
		JobName: name,
		FiredAt: firedAt,
		Status:  api.StatusSuccess,
		Message: res.Stderr,
	}

	if res.Err != nil {
		entry.Status = api.StatusError
		if !cronerrors.IsProcessNonZeroExit(res.Err) && len(res.Stderr) == 0 {
			entry.Message = res.Err.Error()
		}
	}

	return entry
}
