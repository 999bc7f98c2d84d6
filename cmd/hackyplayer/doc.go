// Package main hosts the hackyplayer CLI entrypoint and command graph.
//
// The Cobra command tree translates terminal invocations into IPC calls
// against the daemon: queueing builds and ingests, starting and stopping
// watch folders, listing tasks, cancelling jobs and tailing job logs. The
// hidden daemon command runs the long-lived process itself.
package main
