package logstream

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"hackyplayer/internal/ipc"
)

// defaultWait is how long each follow request blocks in the daemon.
const defaultWait = time.Second

// TailClient captures the IPC log tail contract used for streaming.
type TailClient interface {
	LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error)
}

// Options controls stream behavior.
//
// Lines is the number of trailing lines shown first; zero streams the file
// from the beginning. OnOpen, when set, is called once with the resolved log
// path and the logs available for the job.
type Options struct {
	JobID  string
	File   string
	Lines  int
	Follow bool
	Wait   time.Duration
	OnOpen func(path string, files []string)
}

// Stream emits job log lines over IPC, polling for more when following.
// It returns true when at least one line was emitted. Cancelling ctx ends a
// follow without error.
func Stream(ctx context.Context, client TailClient, opts Options, onLine func(string)) (bool, error) {
	if client == nil {
		return false, errors.New("log tail client missing")
	}
	wait := opts.Wait
	if wait <= 0 {
		wait = defaultWait
	}

	req := ipc.LogTailRequest{ID: opts.JobID, File: opts.File, Offset: -1, Lines: opts.Lines}
	if opts.Lines <= 0 {
		req.Offset = 0
		req.Lines = 0
	}
	printed := false
	opened := false
	for {
		resp, err := client.LogTail(req)
		if err != nil {
			if ctx.Err() != nil {
				return printed, nil
			}
			return printed, fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return printed, errors.New("log tail response missing")
		}
		if !opened {
			opened = true
			if opts.OnOpen != nil {
				opts.OnOpen(resp.Path, resp.Files)
			}
			// Pin the file so a newer log cannot swap in mid-follow.
			req.File = filepath.Base(resp.Path)
		}
		for _, line := range resp.Lines {
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		if !opts.Follow {
			return printed, nil
		}
		req.Offset = resp.Offset
		req.Lines = 0
		req.Follow = true
		req.WaitMillis = int(wait / time.Millisecond)
		select {
		case <-ctx.Done():
			return printed, nil
		default:
		}
	}
}
