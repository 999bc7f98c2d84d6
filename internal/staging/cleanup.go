package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hackyplayer/internal/logging"
)

// PruneResult lists the work directories a pass removed and the ones it
// could not.
type PruneResult struct {
	Removed []string
	Errors  []PruneError
}

// PruneError pairs a directory path with its removal error.
type PruneError struct {
	Path  string
	Error error
}

// PruneStale removes build work directories under tempDir whose modification
// time is older than maxAge. Directories for which keep reports true are
// left alone regardless of age.
func PruneStale(ctx context.Context, tempDir string, maxAge time.Duration, keep func(name string) bool, logger *slog.Logger) PruneResult {
	var result PruneResult
	tempDir = strings.TrimSpace(tempDir)
	if tempDir == "" || maxAge <= 0 {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, PruneError{Path: tempDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() || (keep != nil && keep(entry.Name())) {
			continue
		}
		path := filepath.Join(tempDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, PruneError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, PruneError{Path: path, Error: err})
			logger.Warn("failed to remove stale work directory",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "workdir_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check temp_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Info("removed stale work directory",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "workdir_cleanup"),
		)
	}
	return result
}
