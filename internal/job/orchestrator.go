// Package job drives one ingestion run end-to-end: fetch the source
// document, extract events (through the cache), and synchronize them
// into the user's calendar, with the Job row as the single source of
// truth for the run's outcome.
package job

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"gomical/internal/extract"
	appLog "gomical/internal/log"
	"gomical/internal/model"
	"gomical/internal/storage"
	"gomical/internal/store"
	"gomical/internal/sync"
)

// ErrNotPending is returned when a run is triggered for a job that is
// not in pending state (including a lost race against another trigger).
// No transition is performed in that case.
var ErrNotPending = errors.New("job is not pending")

// JobStore is the slice of the persistence layer the orchestrator needs
// for lifecycle transitions.
type JobStore interface {
	GetJob(ctx context.Context, id string) (model.Job, error)
	CompareAndSetJobStatus(ctx context.Context, id string, from, to model.JobStatus, patch store.JobPatch) (bool, error)
}

// ParseCache is the extraction cache contract.
type ParseCache interface {
	LookupParse(ctx context.Context, hash, language, mode string) (model.ParseResult, bool, error)
	StoreParse(ctx context.Context, hash, language, mode string, result model.ParseResult) error
}

// CredentialStore yields the user's long-lived calendar credential.
type CredentialStore interface {
	GetRefreshToken(ctx context.Context, userID string) (string, error)
}

// TokenRefresher exchanges the long-lived credential for a short-lived
// access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Syncer writes events to the external calendar.
type Syncer interface {
	Sync(ctx context.Context, events []model.CalendarEvent, docHash string) (sync.Result, error)
}

// SyncerFactory builds a per-run Syncer from the run's access token.
// Runs never share calendar clients.
type SyncerFactory func(accessToken string) Syncer

// Orchestrator owns the Job status transition function. No other
// component mutates job status.
type Orchestrator struct {
	jobs      JobStore
	cache     ParseCache
	creds     CredentialStore
	docs      storage.Fetcher
	extractor extract.Extractor
	tokens    TokenRefresher
	newSyncer SyncerFactory
	notifier  Notifier
}

// NewOrchestrator wires the collaborators for job runs. notifier may be
// nil to disable notifications.
func NewOrchestrator(
	jobs JobStore,
	cache ParseCache,
	creds CredentialStore,
	docs storage.Fetcher,
	extractor extract.Extractor,
	tokens TokenRefresher,
	newSyncer SyncerFactory,
	notifier Notifier,
) *Orchestrator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Orchestrator{
		jobs:      jobs,
		cache:     cache,
		creds:     creds,
		docs:      docs,
		extractor: extractor,
		tokens:    tokens,
		newSyncer: newSyncer,
		notifier:  notifier,
	}
}

// Run drives the job through pending -> processing -> {completed|error}.
// Exactly one terminal transition happens per successful entry into
// processing, no matter where a later step fails; no failure from the
// run itself escapes without being recorded on the job first.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status != model.JobPending {
		return fmt.Errorf("%w: job %s is %s", ErrNotPending, jobID, job.Status)
	}

	// Compare-and-set guard: two near-simultaneous triggers must not
	// both process the job. Even if this races, identical runs converge
	// through the sync engine's conflict path; the guard avoids the
	// wasted work.
	ok, err := o.jobs.CompareAndSetJobStatus(ctx, jobID, model.JobPending, model.JobProcessing, store.JobPatch{})
	if err != nil {
		return fmt.Errorf("mark job %s processing: %w", jobID, err)
	}
	if !ok {
		return fmt.Errorf("%w: job %s was claimed concurrently", ErrNotPending, jobID)
	}

	appLog.Info("job run start", "job_id", jobID, "user_id", job.UserID, "object_key", job.ObjectKey)

	hash, result, runErr := o.process(ctx, job)

	// Terminal transition: always exactly one, even on failure.
	if runErr != nil {
		msg := runErr.Error()
		job.Status = model.JobError
		job.ErrorMessage = msg
		job.DocumentHash = hash
		if _, err := o.jobs.CompareAndSetJobStatus(ctx, jobID, model.JobProcessing, model.JobError, store.JobPatch{
			DocumentHash: hash,
			ErrorMessage: msg,
		}); err != nil {
			appLog.Error("terminal error transition failed", err, "job_id", jobID)
		}
		appLog.Error("job run failed", runErr, "job_id", jobID)
	} else {
		job.Status = model.JobCompleted
		job.Result = result
		job.DocumentHash = hash
		if _, err := o.jobs.CompareAndSetJobStatus(ctx, jobID, model.JobProcessing, model.JobCompleted, store.JobPatch{
			DocumentHash: hash,
			Result:       result,
		}); err != nil {
			appLog.Error("terminal completed transition failed", err, "job_id", jobID)
		}
		appLog.Info("job run completed", "job_id", jobID, "inserted", result.Inserted, "skipped", result.Skipped)
	}

	// Fire-and-forget: notification failures never affect the outcome.
	o.notifier.Notify(ctx, job)

	return runErr
}

// process executes steps 2-6 of a run. Any panic below is converted to
// an error so the caller's terminal transition still happens.
func (o *Orchestrator) process(ctx context.Context, job model.Job) (hash string, result *model.JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job run panicked: %v", r)
		}
	}()

	// Fetch source bytes.
	data, err := o.docs.Fetch(ctx, job.ObjectKey)
	if err != nil {
		return "", nil, fmt.Errorf("fetch document %s: %w", job.ObjectKey, err)
	}

	sum := sha256.Sum256(data)
	hash = hex.EncodeToString(sum[:])

	// Extraction, through the content-addressed cache.
	res, hit, err := o.cache.LookupParse(ctx, hash, job.Language, job.Mode)
	if err != nil {
		// Decision: a broken cache read degrades to a miss. The run can
		// still succeed off a fresh extraction, and the failure is loud.
		appLog.Error("parse cache lookup failed, extracting fresh", err, "hash", hash)
		hit = false
	}
	if hit {
		appLog.Info("parse cache hit", "hash", hash, "event_count", len(res.Events))
	} else {
		res, err = o.extractor.Extract(ctx, data, job.Language, job.Mode)
		if err != nil {
			return hash, nil, fmt.Errorf("extract document: %w", err)
		}
		// A cache-write failure must not fail the run: we already hold
		// the freshly extracted events.
		if err := o.cache.StoreParse(ctx, hash, job.Language, job.Mode, res); err != nil {
			appLog.Error("parse cache store failed", err, "hash", hash)
		}
	}

	// Credentials. Missing means the user never connected a calendar:
	// fatal and non-retryable for this run.
	refreshToken, err := o.creds.GetRefreshToken(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return hash, nil, fmt.Errorf("no calendar connected for user %s", job.UserID)
		}
		return hash, nil, fmt.Errorf("load credentials: %w", err)
	}
	accessToken, err := o.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return hash, nil, fmt.Errorf("refresh access token: %w", err)
	}

	// Per-run calendar client; no cross-run sharing.
	r, err := o.newSyncer(accessToken).Sync(ctx, res.Events, hash)
	if err != nil {
		return hash, nil, fmt.Errorf("calendar sync: %w", err)
	}

	return hash, &model.JobResult{Inserted: r.Inserted, Skipped: r.Skipped}, nil
}
