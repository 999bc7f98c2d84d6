package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"hackyplayer/internal/logs"
)

// maxLogWait bounds how long a single follow request may block the daemon.
const maxLogWait = 10 * time.Second

// LogQuery selects a job log and the portion of it to return. Lines is the
// number of trailing lines returned when Offset is negative.
type LogQuery struct {
	File   string
	Lines  int
	Offset int64
	Follow bool
	Wait   time.Duration
}

// LogTail holds lines read from a job log file.
type LogTail struct {
	Path   string   `json:"path"`
	Files  []string `json:"files"`
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TailLog reads a job's log. When q.File is empty the most recently
// modified log in the job's log directory is used.
func (s *Supervisor) TailLog(ctx context.Context, id string, q LogQuery) (LogTail, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return LogTail{}, err
	}
	dir := s.jobLogDir(job)
	files, err := listLogs(dir)
	if err != nil {
		return LogTail{}, err
	}

	tail := LogTail{Files: files}
	name := files[0]
	if file := strings.TrimSpace(q.File); file != "" {
		name = filepath.Base(file)
	}
	tail.Path = filepath.Join(dir, name)

	if q.Offset < 0 && q.Lines <= 0 {
		q.Lines = 50
	}
	result, err := logs.Tail(ctx, tail.Path, logs.TailOptions{
		Offset: q.Offset,
		Limit:  q.Lines,
		Follow: q.Follow,
		Wait:   min(q.Wait, maxLogWait),
	})
	if err != nil {
		return LogTail{}, err
	}
	tail.Lines = result.Lines
	tail.Offset = result.Offset
	return tail, nil
}

// listLogs returns the *.log names in dir, newest first.
func listLogs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read job log directory: %w", err)
	}

	type candidate struct {
		name string
		mod  int64
	}
	var found []candidate
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{name: entry.Name(), mod: info.ModTime().UnixNano()})
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no logs in %s", dir)
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].mod == found[j].mod {
			return found[i].name < found[j].name
		}
		return found[i].mod > found[j].mod
	})
	names := make([]string, len(found))
	for i, c := range found {
		names[i] = c.name
	}
	return names, nil
}
