package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EnqueueOption adjusts how a job is enqueued.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	singleton bool
}

// WithSingleton rejects the enqueue with a DuplicateJobError when a pending or
// running job with the same kind and arguments exists.
func WithSingleton() EnqueueOption {
	return func(o *enqueueOptions) { o.singleton = true }
}

// Enqueue validates args and inserts a pending job, returning it with its new id.
func (s *Store) Enqueue(ctx context.Context, args Args, opts ...EnqueueOption) (*Job, error) {
	if args == nil {
		return nil, fmt.Errorf("%w: nil args", ErrInvalidArgs)
	}
	if err := args.Validate(); err != nil {
		return nil, err
	}
	var options enqueueOptions
	for _, opt := range opts {
		opt(&options)
	}

	encoded, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}
	var key string
	if options.singleton {
		key, err = SingletonKey(args)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO jobs (id, kind, status, args_json, singleton_key, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		args.Kind(),
		StatusPending,
		encoded,
		nullableString(key),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		if key != "" && isUniqueViolation(err) {
			dup := &DuplicateJobError{Key: key}
			if existing, lookupErr := s.FindLiveBySingleton(ctx, key); lookupErr == nil && existing != nil {
				dup.ExistingID = existing.ID
			}
			return nil, dup
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a job by id. It returns ErrNotFound for unknown ids.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindLiveBySingleton returns the pending or running job holding key, or nil.
func (s *Store) FindLiveBySingleton(ctx context.Context, key string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE singleton_key = ? AND status IN (?, ?) ORDER BY rowid LIMIT 1`,
		key, StatusPending, StatusRunning,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find singleton job: %w", err)
	}
	return job, nil
}

// Claim atomically moves the oldest pending job to running and assigns it to
// workerID. It returns nil when nothing is pending.
func (s *Store) Claim(ctx context.Context, workerID string) (*Job, error) {
	ctx = ensureContext(ctx)
	now := formatTime(time.Now())
	var job *Job
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`UPDATE jobs
             SET status = ?, worker_id = ?, node = ?, started_at = ?, updated_at = ?, last_heartbeat = ?
             WHERE id = (
                 SELECT id FROM jobs WHERE status = ? AND cancel_requested = 0 ORDER BY rowid LIMIT 1
             ) AND status = ?
             RETURNING `+jobColumns,
			StatusRunning, workerID, nullableString(s.node), now, now, now,
			StatusPending, StatusPending,
		)
		var scanErr error
		job, scanErr = scanJob(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// List returns jobs in insertion order filtered by kind and status.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Job, error) {
	ctx = ensureContext(ctx)
	var (
		clauses []string
		args    []any
	)
	if len(filter.Kinds) > 0 {
		clauses = append(clauses, "kind IN ("+makePlaceholders(len(filter.Kinds))+")")
		for _, kind := range filter.Kinds {
			args = append(args, kind)
		}
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY rowid"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Active returns running jobs of the given kinds.
func (s *Store) Active(ctx context.Context, kinds ...Kind) ([]*Job, error) {
	return s.List(ctx, ListFilter{Kinds: kinds, Statuses: []Status{StatusRunning}})
}

// Scheduled returns pending jobs of the given kinds.
func (s *Store) Scheduled(ctx context.Context, kinds ...Kind) ([]*Job, error) {
	return s.List(ctx, ListFilter{Kinds: kinds, Statuses: []Status{StatusPending}})
}
