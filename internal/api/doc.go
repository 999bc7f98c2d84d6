// Package api is the task supervisor behind the daemon control channel.
//
// It reads job records from the queue store and maps them into stable
// external views (TaskView for builds, IngestView for ingests,
// WatchFolderView for configured watch folders) that the CLI renders without
// depending on queue internals. Running jobs report their phase as state and
// a one-decimal percentage; scheduled jobs have no start time and report 0%.
//
// It also owns the write side of the control surface: enqueueing builds and
// ingests, starting and stopping watch folders by configured name, and
// cancelling jobs by id.
//
// Timestamps are formatted as "2006-01-02 15:04:05" in local time.
package api
