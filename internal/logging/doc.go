// Package logging assembles structured slog loggers and formatting helpers used
// across hackyplayer.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code automatically tags log
// lines with job IDs, job kinds, and stages. JobLogger mirrors a job's log
// lines into the task log kept in the job's log directory, and
// CleanupOldLogs prunes daemon logs and expired job log directories.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape and routing as the rest of the system.
package logging
