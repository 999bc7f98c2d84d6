// Package logs reads job and daemon log files by byte offset.
//
// A negative offset asks for the last N lines; a non-negative offset resumes
// where a previous read stopped. Follow reads poll until new lines arrive or
// the wait elapses, which is how `hackyplayer logs --follow` streams output
// over IPC without holding a connection open.
package logs
