package ipc

import "hackyplayer/internal/api"

// StartRequest triggers worker pool startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the worker pool.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon, host and workflow status.
type StatusResponse = api.DaemonStatus

// DependencyStatus reports one external tool or resource check.
type DependencyStatus = api.DependencyStatus

// DirectoryStatus reports access to one configured directory.
type DirectoryStatus = api.DirectoryStatus

// TaskView is a build job as shown in the tasks listing.
type TaskView = api.TaskView

// IngestView is an ingest job as shown in the ingests listing.
type IngestView = api.IngestView

// WatchFolderView is a configured watch folder merged with its monitor job.
type WatchFolderView = api.WatchFolderView

// JobView is the detailed representation of any job.
type JobView = api.JobView

// BuildRequest submits a talk build.
type BuildRequest = api.BuildRequest

// BuildResponse returns the id of the queued build.
type BuildResponse struct {
	ID string `json:"id"`
}

// IngestRequest submits a single-file ingest.
type IngestRequest = api.IngestRequest

// IngestResponse returns the id of the queued ingest.
type IngestResponse struct {
	ID string `json:"id"`
}

// WatchRequest names a configured watch folder.
type WatchRequest struct {
	Name string `json:"name"`
}

// WatchStartResponse reports the monitor job for a folder. AlreadyRunning is
// set when an existing monitor was found instead of a new one queued.
type WatchStartResponse struct {
	ID             string `json:"id"`
	AlreadyRunning bool   `json:"already_running"`
}

// WatchStopResponse lists the monitor jobs that were revoked.
type WatchStopResponse struct {
	IDs []string `json:"ids"`
}

// WatchListRequest fetches the watch folders.
type WatchListRequest struct{}

// WatchListResponse contains every configured watch folder.
type WatchListResponse struct {
	Folders []WatchFolderView `json:"folders"`
}

// TaskListRequest fetches active and scheduled builds.
type TaskListRequest struct{}

// TaskListResponse contains build tasks, running first.
type TaskListResponse struct {
	Tasks []TaskView `json:"tasks"`
}

// IngestListRequest fetches active and scheduled ingests.
type IngestListRequest struct{}

// IngestListResponse contains ingest tasks, running first.
type IngestListResponse struct {
	Ingests []IngestView `json:"ingests"`
}

// JobRequest addresses a single job by id.
type JobRequest struct {
	ID string `json:"id"`
}

// JobResponse wraps a job view.
type JobResponse struct {
	Job JobView `json:"job"`
}

// LogTailRequest asks for part of a job log. A negative Offset returns the
// last Lines lines; otherwise reading resumes at Offset.
type LogTailRequest struct {
	ID         string `json:"id"`
	File       string `json:"file,omitempty"`
	Lines      int    `json:"lines,omitempty"`
	Offset     int64  `json:"offset"`
	Follow     bool   `json:"follow,omitempty"`
	WaitMillis int    `json:"wait_millis,omitempty"`
}

// LogTailResponse returns log lines and the offset to resume from.
type LogTailResponse = api.LogTail

// DatabaseHealthRequest asks for database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse carries queue database diagnostics.
type DatabaseHealthResponse struct {
	DBPath         string `json:"db_path"`
	DatabaseExists bool   `json:"database_exists"`
	SchemaVersion  int    `json:"schema_version"`
	IntegrityCheck bool   `json:"integrity_check"`
	TotalJobs      int    `json:"total_jobs"`
	Error          string `json:"error,omitempty"`
}

// TestNotificationRequest triggers a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse describes the notification attempt.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// MaintenanceRequest runs one maintenance pass immediately.
type MaintenanceRequest struct{}

// MaintenanceResponse reports what the maintenance pass changed.
type MaintenanceResponse struct {
	Reclaimed      int64 `json:"reclaimed"`
	Purged         int64 `json:"purged"`
	LogsPruned     int   `json:"logs_pruned"`
	WorkDirsPruned int   `json:"workdirs_pruned"`
}
