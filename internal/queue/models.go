package queue

import (
	"time"
)

// Kind identifies the pipeline a job runs.
type Kind string

const (
	KindBuild  Kind = "build"
	KindIngest Kind = "ingest"
	KindWatch  Kind = "watch"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRevoked   Status = "revoked"
)

// RevokedBeforeStart is the error message recorded for jobs revoked while pending.
const RevokedBeforeStart = "Revoked before start"

// RevokedByUser is the error message recorded when a running job is stopped on request.
const RevokedByUser = "Revoked by user"

// IsTerminal reports whether status is final.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusRevoked:
		return true
	default:
		return false
	}
}

// Job is a queue record. Args holds the kind-specific typed arguments.
type Job struct {
	ID              string
	Kind            Kind
	Status          Status
	Args            Args
	SingletonKey    string
	Phase           string
	ProgressCurrent float64
	ProgressTotal   float64
	Result          string
	ErrorMessage    string
	Node            string
	WorkerID        string
	CancelRequested bool
	CreatedAt       time.Time
	StartedAt       *time.Time
	FinishedAt      *time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time
}

// Percent returns progress as a percentage in [0, 100], or 0 when the total is unknown.
func (j *Job) Percent() float64 {
	if j == nil || j.ProgressTotal <= 0 {
		return 0
	}
	pct := j.ProgressCurrent * 100 / j.ProgressTotal
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}

// Build returns the job's build arguments when it is a build job.
func (j *Job) Build() (BuildArgs, bool) {
	if j == nil {
		return BuildArgs{}, false
	}
	args, ok := j.Args.(BuildArgs)
	return args, ok
}

// Ingest returns the job's ingest arguments when it is an ingest job.
func (j *Job) Ingest() (IngestArgs, bool) {
	if j == nil {
		return IngestArgs{}, false
	}
	args, ok := j.Args.(IngestArgs)
	return args, ok
}

// Watch returns the job's watch arguments when it is a watch job.
func (j *Job) Watch() (WatchArgs, bool) {
	if j == nil {
		return WatchArgs{}, false
	}
	args, ok := j.Args.(WatchArgs)
	return args, ok
}

// ListFilter narrows List results. Empty slices match everything.
type ListFilter struct {
	Kinds    []Kind
	Statuses []Status
	Limit    int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath         string
	DatabaseExists bool
	SchemaVersion  int
	IntegrityCheck bool
	TotalJobs      int
	Error          string
}
