// Package daemon is the application context of the long-running hackyplayer
// process.
//
// It wires configuration, the queue store, the worker pool, the maintenance
// scheduler and the task supervisor into a single lifecycle, guarded by a
// flock so only one daemon runs per state directory. Status aggregates pool
// diagnostics, external tool availability and host load for the CLI.
package daemon
