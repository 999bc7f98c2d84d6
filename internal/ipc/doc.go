// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Job,
// task and status views are aliases of the api package types so the CLI and
// the daemon agree on one wire shape.
package ipc
