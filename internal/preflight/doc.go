// Package preflight checks that the filesystem paths hackyplayer depends on
// exist with the access each one needs.
//
// The daemon reports these checks in its status snapshot, and the CLI falls
// back to running them locally when the daemon is offline. A failed check is
// informational: a missing source directory only fails the builds that need
// it.
package preflight
