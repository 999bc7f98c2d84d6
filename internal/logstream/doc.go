// Package logstream drives offset-based log reads against the daemon so the
// CLI can print a job log and keep following it.
package logstream
