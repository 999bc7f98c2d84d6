// Package queue persists jobs in SQLite and exposes the operations that drive
// their lifecycle.
//
// The Store is the durable task queue behind every build, ingest and watch
// job: Enqueue assigns an id and returns immediately, Claim hands the oldest
// pending job to a worker (at-least-once dispatch), and the owning worker
// records phase, progress and heartbeats until it writes a terminal status.
// Revoke cancels a pending job outright and flags a running one so its worker
// can terminate the external tools it supervises.
//
// Jobs enqueued with WithSingleton are keyed on their kind and canonical
// arguments; a partial unique index guarantees at most one pending or running
// instance per key, which is what stops two monitors watching the same folder.
//
// The database is treated as transient storage for in-flight and recently
// finished jobs rather than a long-term archive. Schema changes bump the
// version in schema.go; users clear the database to adopt the new schema.
package queue
