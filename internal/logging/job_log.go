package logging

import (
	"fmt"
	"log/slog"
	"os"
)

// JobLog is a per-job task log file that receives a copy of every line the
// job's logger emits, at debug level and above.
type JobLog struct {
	Path   string
	Logger *slog.Logger
	file   *os.File
}

// OpenJobLog opens (appending) the task log at path and returns a logger that
// writes to both base and the file.
func OpenJobLog(base *slog.Logger, path string) (*JobLog, error) {
	file, err := openLogFile(path)
	if err != nil {
		return nil, fmt.Errorf("open job log: %w", err)
	}
	fileHandler := newPrettyHandler(file, slog.LevelDebug, false)
	return &JobLog{
		Path:   path,
		Logger: TeeLogger(base, fileHandler),
		file:   file,
	}, nil
}

// Close flushes and closes the task log file.
func (l *JobLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
