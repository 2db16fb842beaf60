// Package worker periodically sweeps pending jobs into the orchestrator.
package worker

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"

	"gomical/internal/job"
	appLog "gomical/internal/log"
)

// Queue yields the next pending job, oldest first.
type Queue interface {
	NextPendingJob(ctx context.Context) (string, bool, error)
}

// Runner processes one job end-to-end.
type Runner interface {
	Run(ctx context.Context, jobID string) error
}

// maxPerSweep caps one sweep so a job that keeps failing to leave
// pending state (e.g. a persistent store error) cannot spin the loop.
const maxPerSweep = 16

// Worker drains pending jobs on a cron schedule. Jobs run strictly one
// at a time within a sweep; the job-level CAS guard makes overlapping
// sweeps safe.
type Worker struct {
	queue    Queue
	runner   Runner
	schedule string
}

func New(queue Queue, runner Runner, schedule string) *Worker {
	return &Worker{queue: queue, runner: runner, schedule: schedule}
}

// Start registers the cron schedule and blocks until ctx is cancelled.
// One sweep runs immediately so enqueued jobs are not stuck waiting for
// the first tick.
func (w *Worker) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(w.schedule, func() { w.Sweep(ctx) }); err != nil {
		return err
	}

	appLog.Info("worker started", "schedule", w.schedule)
	w.Sweep(ctx)
	c.Start()

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	appLog.Info("worker stopped")
	return nil
}

// Sweep processes pending jobs until the queue is empty, the per-sweep
// cap is hit, or ctx is cancelled. Individual job failures are recorded
// by the orchestrator and do not stop the sweep.
func (w *Worker) Sweep(ctx context.Context) {
	for i := 0; i < maxPerSweep; i++ {
		if ctx.Err() != nil {
			return
		}

		id, ok, err := w.queue.NextPendingJob(ctx)
		if err != nil {
			appLog.Error("worker: pending job query failed", err)
			return
		}
		if !ok {
			return
		}

		if err := w.runner.Run(ctx, id); err != nil {
			if errors.Is(err, job.ErrNotPending) {
				// Claimed by a concurrent trigger; nothing lost.
				appLog.Debug("worker: job claimed elsewhere", "job_id", id)
				continue
			}
			appLog.Error("worker: job run failed", err, "job_id", id)
		}
	}
}
