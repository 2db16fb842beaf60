package job

import (
	"context"

	appLog "gomical/internal/log"
	"gomical/internal/model"
)

// Notifier is invoked once after a job reaches a terminal state.
// Implementations must not return errors into the run; delivery is
// best-effort.
type Notifier interface {
	Notify(ctx context.Context, job model.Job)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, model.Job) {}

// LogNotifier records terminal outcomes in the application log. It
// stands in for an outbound delivery channel (mail, push) without
// making job completion depend on one.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, job model.Job) {
	switch job.Status {
	case model.JobCompleted:
		inserted, skipped := 0, 0
		if job.Result != nil {
			inserted, skipped = job.Result.Inserted, job.Result.Skipped
		}
		appLog.Info("notify: job completed",
			"job_id", job.ID,
			"user_id", job.UserID,
			"inserted", inserted,
			"skipped", skipped,
		)
	case model.JobError:
		appLog.Warn("notify: job failed",
			"job_id", job.ID,
			"user_id", job.UserID,
			"message", job.ErrorMessage,
		)
	}
}
