// Package workflow runs queued jobs on a fixed pool of workers.
//
// Each worker claims the oldest pending job from the queue store and hands it
// to the handler registered for its kind (build, ingest, watch). While a job
// runs the pool keeps its heartbeat fresh, polls the store for cancel
// requests and cancels the job context when one arrives, and throttles
// progress writes. Terminal state (succeeded, failed, revoked) is written
// only by the pool.
//
// Maintenance runs on a cron schedule and reclaims jobs whose heartbeats went
// stale, purges expired finished records and prunes old logs.
package workflow
