// Package services defines shared utilities consumed by the pipelines, the
// worker pool and the daemon surface.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, job kinds, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures from external
//     tools, bad requests and missing files are classified consistently in job
//     records, logs and notifications.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across job kinds.
package services
