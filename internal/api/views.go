package api

import (
	"fmt"
	"time"

	"hackyplayer/internal/deps"
	"hackyplayer/internal/preflight"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/workflow"
)

func formatTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.Local().Format(timeFormat)
	return &s
}

func progressString(job *queue.Job) string {
	if job.Status != queue.StatusRunning {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", job.Percent())
}

// jobState is the phase of a running job, or its status otherwise.
func jobState(job *queue.Job) string {
	if job.Status == queue.StatusRunning && job.Phase != "" {
		return job.Phase
	}
	return string(job.Status)
}

// FromBuildJob converts a build job into its status view.
func FromBuildJob(job *queue.Job) TaskView {
	args, _ := job.Build()
	return TaskView{
		ID:        job.ID,
		TimeStart: formatTime(job.StartedAt),
		Source:    args.Video,
		Title:     args.Talk.Title,
		Presenter: args.Talk.Presenter,
		InTC:      args.StartTC,
		OutTC:     args.EndTC,
		Node:      job.Node,
		State:     jobState(job),
		Progress:  progressString(job),
	}
}

// FromIngestJob converts an ingest job into its status view.
func FromIngestJob(job *queue.Job) IngestView {
	args, _ := job.Ingest()
	return IngestView{
		ID:        job.ID,
		TimeStart: formatTime(job.StartedAt),
		Input:     args.Input,
		Node:      job.Node,
		State:     jobState(job),
		Progress:  progressString(job),
	}
}

// FromJob converts any job into its detailed view.
func FromJob(job *queue.Job, logDir string) JobView {
	view := JobView{
		ID:           job.ID,
		Kind:         string(job.Kind),
		Status:       string(job.Status),
		Phase:        job.Phase,
		Label:        jobLabel(job),
		Progress:     progressString(job),
		Result:       job.Result,
		ErrorMessage: job.ErrorMessage,
		Node:         job.Node,
		CreatedAt:    job.CreatedAt.Local().Format(timeFormat),
		TimeStart:    formatTime(job.StartedAt),
		FinishedAt:   formatTime(job.FinishedAt),
		LogDir:       logDir,
	}
	if job.Status == queue.StatusSucceeded {
		view.Progress = "100.0%"
	}
	return view
}

func jobLabel(job *queue.Job) string {
	switch args := job.Args.(type) {
	case queue.BuildArgs:
		return args.Talk.Title
	case queue.IngestArgs:
		return args.Input
	case queue.WatchArgs:
		return args.Name
	default:
		return ""
	}
}

// FromStatusSummary converts worker pool diagnostics.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	stats := make(map[string]int, len(summary.QueueStats))
	for status, count := range summary.QueueStats {
		stats[string(status)] = count
	}
	return WorkflowStatus{
		Running:    summary.Running,
		Workers:    summary.Workers,
		Busy:       summary.Busy,
		QueueStats: stats,
		LastError:  summary.LastError,
	}
}

// FromDirectoryChecks converts filesystem preflight results.
func FromDirectoryChecks(results []preflight.Result) []DirectoryStatus {
	out := make([]DirectoryStatus, 0, len(results))
	for _, r := range results {
		out = append(out, DirectoryStatus{Name: r.Name, Path: r.Path, OK: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Detail:      s.Detail,
		})
	}
	return out
}
