package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, kind, status, args_json, singleton_key, phase, progress_current, progress_total, result, error_message, node, worker_id, cancel_requested, created_at, started_at, finished_at, updated_at, last_heartbeat"

// Fixed-width so timestamps stored as text compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		kind            string
		status          string
		argsJSON        string
		singletonKey    sql.NullString
		phase           sql.NullString
		progressCurrent sql.NullFloat64
		progressTotal   sql.NullFloat64
		result          sql.NullString
		errorMessage    sql.NullString
		node            sql.NullString
		workerID        sql.NullString
		cancelRequested sql.NullInt64
		createdRaw      sql.NullString
		startedRaw      sql.NullString
		finishedRaw     sql.NullString
		updatedRaw      sql.NullString
		heartbeatRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&kind,
		&status,
		&argsJSON,
		&singletonKey,
		&phase,
		&progressCurrent,
		&progressTotal,
		&result,
		&errorMessage,
		&node,
		&workerID,
		&cancelRequested,
		&createdRaw,
		&startedRaw,
		&finishedRaw,
		&updatedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	args, err := decodeArgs(Kind(kind), argsJSON)
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		Kind:            Kind(kind),
		Status:          Status(status),
		Args:            args,
		SingletonKey:    singletonKey.String,
		Phase:           phase.String,
		ProgressCurrent: progressCurrent.Float64,
		ProgressTotal:   progressTotal.Float64,
		Result:          result.String,
		ErrorMessage:    errorMessage.String,
		Node:            node.String,
		WorkerID:        workerID.String,
		CancelRequested: cancelRequested.Int64 != 0,
		StartedAt:       parseNullableTime(startedRaw),
		FinishedAt:      parseNullableTime(finishedRaw),
		LastHeartbeat:   parseNullableTime(heartbeatRaw),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
