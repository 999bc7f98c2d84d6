package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Revoke cancels a job. Pending jobs become revoked immediately; running jobs
// are flagged so their worker terminates them. Terminal jobs are left alone.
// The job is returned as it stands after the request.
func (s *Store) Revoke(ctx context.Context, id string) (*Job, error) {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, finished_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusRevoked, RevokedBeforeStart, now, now, id, StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("revoke pending job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.execWithRetry(
			ctx,
			`UPDATE jobs SET cancel_requested = 1, updated_at = ? WHERE id = ? AND status = ?`,
			now, id, StatusRunning,
		); err != nil {
			return nil, fmt.Errorf("flag running job: %w", err)
		}
	}
	return s.Get(ctx, id)
}

// CancelRequested reports whether a revoke was requested for the job.
func (s *Store) CancelRequested(ctx context.Context, id string) (bool, error) {
	ctx = ensureContext(ctx)
	var flag int
	if err := s.db.QueryRowContext(ctx, `SELECT cancel_requested FROM jobs WHERE id = ?`, id).Scan(&flag); err != nil {
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return flag != 0, nil
}

// Complete marks a running job succeeded with its result.
func (s *Store) Complete(ctx context.Context, id, result string) error {
	return s.finish(ctx, id, StatusSucceeded, result, "")
}

// Fail marks a running job failed with message.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	return s.finish(ctx, id, StatusFailed, "", message)
}

// MarkRevoked marks a running job revoked with message.
func (s *Store) MarkRevoked(ctx context.Context, id, message string) error {
	return s.finish(ctx, id, StatusRevoked, "", message)
}

func (s *Store) finish(ctx context.Context, id string, status Status, result, message string) error {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, result = ?, error_message = ?, finished_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		status, nullableString(result), nullableString(message), now, now, id, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("mark job %s: %w", status, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}
	return nil
}

// UpdateProgress records the phase and progress counters of a running job.
func (s *Store) UpdateProgress(ctx context.Context, id, phase string, current, total float64) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET phase = ?, progress_current = ?, progress_total = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		nullableString(phase), current, total, now, id, StatusRunning,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// SetPhase records the phase of a running job and resets its progress counters.
func (s *Store) SetPhase(ctx context.Context, id, phase string) error {
	return s.UpdateProgress(ctx, id, phase, 0, 0)
}

// Heartbeat updates the last heartbeat timestamp for a running job.
func (s *Store) Heartbeat(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now, now, id, StatusRunning,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStale returns running jobs whose heartbeat is older than cutoff to
// pending. Jobs with an outstanding revoke are marked revoked instead.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.reclaim(ctx, `AND (last_heartbeat IS NULL OR last_heartbeat < ?)`, formatTime(cutoff))
}

// ResetRunning returns every running job to pending. The daemon calls it on
// startup, before any worker of its own has claimed work.
func (s *Store) ResetRunning(ctx context.Context) (int64, error) {
	return s.reclaim(ctx, "")
}

func (s *Store) reclaim(ctx context.Context, extra string, extraArgs ...any) (int64, error) {
	now := formatTime(time.Now())
	args := append([]any{StatusRevoked, RevokedByUser, now, now, StatusRunning}, extraArgs...)
	revoked, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, finished_at = ?, updated_at = ?
         WHERE status = ? AND cancel_requested = 1 `+extra,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("revoke stale jobs: %w", err)
	}
	args = append([]any{StatusPending, now, StatusRunning}, extraArgs...)
	requeued, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, worker_id = NULL, started_at = NULL, last_heartbeat = NULL,
             phase = 'Reclaimed from stale worker', progress_current = 0, progress_total = 0, updated_at = ?
         WHERE status = ? AND cancel_requested = 0 `+extra,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("requeue stale jobs: %w", err)
	}
	a, _ := revoked.RowsAffected()
	b, _ := requeued.RowsAffected()
	return a + b, nil
}

// PurgeFinished deletes terminal jobs that finished before cutoff.
func (s *Store) PurgeFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM jobs WHERE status IN (?, ?, ?) AND finished_at IS NOT NULL AND finished_at < ?`,
		StatusSucceeded, StatusFailed, StatusRevoked, formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("purge finished jobs: %w", err)
	}
	return res.RowsAffected()
}

// IsNotRunning reports whether err came from writing to a job that is no longer running.
func IsNotRunning(err error) bool {
	return errors.Is(err, ErrNotRunning)
}
