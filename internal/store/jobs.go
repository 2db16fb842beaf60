package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gomical/internal/model"
)

// JobPatch carries the optional fields written alongside a status
// transition. Zero-valued fields are left untouched.
type JobPatch struct {
	DocumentHash string
	Result       *model.JobResult
	ErrorMessage string
}

// CreateJob inserts a new job in pending state. A missing ID is filled
// with a random UUID; the stored job is returned.
func (s *Store) CreateJob(ctx context.Context, job model.Job) (model.Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = model.JobPending
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	const q = `
INSERT INTO jobs (id, user_id, object_key, language, mode, status, document_hash, error_message, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err := s.db.ExecContext(ctx, q,
		job.ID, job.UserID, job.ObjectKey, job.Language, job.Mode,
		string(job.Status), job.DocumentHash, job.ErrorMessage,
		now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return model.Job{}, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// GetJob returns the job with the given ID, or ErrNotFound.
func (s *Store) GetJob(ctx context.Context, id string) (model.Job, error) {
	const q = `
SELECT id, user_id, object_key, language, mode, status, document_hash,
       inserted_count, skipped_count, error_message, created_at, updated_at
FROM jobs
WHERE id = ?;
`
	return s.scanJob(s.db.QueryRowContext(ctx, q, id))
}

// NextPendingJob returns the oldest pending job ID, if any. The caller
// is expected to move it to processing via CompareAndSetJobStatus; a
// raced claim simply makes that CAS fail.
func (s *Store) NextPendingJob(ctx context.Context) (string, bool, error) {
	const q = `
SELECT id FROM jobs
WHERE status = 'pending'
ORDER BY created_at
LIMIT 1;
`
	var id string
	err := s.db.QueryRowContext(ctx, q).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("next pending job: %w", err)
	}
	return id, true, nil
}

// CompareAndSetJobStatus transitions a job from one status to another,
// applying the patch in the same write. Returns false (and no error)
// when the job is missing or its current status is not `from`; this is
// the guard that keeps two concurrent triggers from double-processing
// one job.
func (s *Store) CompareAndSetJobStatus(ctx context.Context, id string, from, to model.JobStatus, patch JobPatch) (bool, error) {
	set := []string{"status = ?", "updated_at = ?"}
	args := []any{string(to), time.Now().UTC().Format(timeLayout)}

	if patch.DocumentHash != "" {
		set = append(set, "document_hash = ?")
		args = append(args, patch.DocumentHash)
	}
	if patch.Result != nil {
		set = append(set, "inserted_count = ?", "skipped_count = ?")
		args = append(args, patch.Result.Inserted, patch.Result.Skipped)
	}
	if patch.ErrorMessage != "" {
		set = append(set, "error_message = ?")
		args = append(args, patch.ErrorMessage)
	}

	args = append(args, id, string(from))

	q := "UPDATE jobs SET " + strings.Join(set, ", ") + " WHERE id = ? AND status = ?;"
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("compare-and-set job status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListJobs returns jobs newest first, optionally filtered by user.
func (s *Store) ListJobs(ctx context.Context, userID string, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
SELECT id, user_id, object_key, language, mode, status, document_hash,
       inserted_count, skipped_count, error_message, created_at, updated_at
FROM jobs
`
	args := make([]any, 0, 2)
	if userID != "" {
		q += "WHERE user_id = ?\n"
		args = append(args, userID)
	}
	q += "ORDER BY created_at DESC\nLIMIT ?;"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.Job, 0)
	for rows.Next() {
		job, err := s.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanJob(row rowScanner) (model.Job, error) {
	var (
		job       model.Job
		status    string
		inserted  sql.NullInt64
		skipped   sql.NullInt64
		createdAt string
		updatedAt string
	)
	err := row.Scan(
		&job.ID, &job.UserID, &job.ObjectKey, &job.Language, &job.Mode,
		&status, &job.DocumentHash, &inserted, &skipped, &job.ErrorMessage,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, ErrNotFound
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("scan job: %w", err)
	}

	job.Status = model.JobStatus(status)
	if inserted.Valid && skipped.Valid {
		job.Result = &model.JobResult{
			Inserted: int(inserted.Int64),
			Skipped:  int(skipped.Int64),
		}
	}
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		job.CreatedAt = t
	}
	if t, err := time.Parse(timeLayout, updatedAt); err == nil {
		job.UpdatedAt = t
	}
	return job, nil
}
