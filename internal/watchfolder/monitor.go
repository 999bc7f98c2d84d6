package watchfolder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"hackyplayer/internal/logging"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/services"
)

// ErrDirectoryUnavailable is returned when the watched directory cannot be listed.
var ErrDirectoryUnavailable = errors.New("watch directory unavailable")

// State is the monitor's loop position.
type State string

const (
	StateScanning State = "SCANNING"
	StateSleeping State = "SLEEPING"
	StateStopped  State = "STOPPED"
)

// Phase names reported on the task handle.
const (
	PhaseScanning = "Scanning"
	PhaseSleeping = "Sleeping"
	PhaseStopped  = "Stopped"
)

const (
	scanInterval = 5 * time.Second
	stablePasses = 3
)

// WatchedFile is the per-file state carried between scans.
type WatchedFile struct {
	Size       int64
	ModTime    time.Time
	Pass       int
	Processing string
}

// Enqueuer submits an ingest for a stable file and returns the new job id.
type Enqueuer interface {
	EnqueueIngest(ctx context.Context, input, outputDir string) (string, error)
}

// Task is the handle a monitor reports through.
type Task interface {
	Logger() *slog.Logger
	SetPhase(phase string)
}

// Monitor watches one directory.
type Monitor struct {
	path      string
	outputDir string
	enqueuer  Enqueuer
	interval  time.Duration

	state State
	files map[string]WatchedFile
}

// Option customizes a Monitor.
type Option func(*Monitor)

func withInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// New constructs a monitor for path whose ingests write to outputDir.
func New(path, outputDir string, enqueuer Enqueuer, opts ...Option) *Monitor {
	m := &Monitor{
		path:      path,
		outputDir: outputDir,
		enqueuer:  enqueuer,
		interval:  scanInterval,
		files:     make(map[string]WatchedFile),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the monitor's current loop position.
func (m *Monitor) State() State { return m.state }

// Files returns a copy of the file table from the last scan.
func (m *Monitor) Files() map[string]WatchedFile {
	out := make(map[string]WatchedFile, len(m.files))
	for name, f := range m.files {
		out[name] = f
	}
	return out
}

// Run scans until ctx is cancelled or the directory disappears.
func (m *Monitor) Run(ctx context.Context, task Task) error {
	logger := task.Logger().With(
		logging.String(logging.FieldComponent, "watchfolder"),
		logging.String("path", m.path),
	)
	logger.Info("watch started", logging.String("output_dir", m.outputDir))

	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		m.state = StateScanning
		task.SetPhase(PhaseScanning)
		if err := m.Scan(ctx, logger); err != nil {
			m.state = StateStopped
			task.SetPhase(PhaseStopped)
			logging.ErrorWithContext(logger, "watch directory unavailable; monitor stopped", "watch_dir_missing",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "recreate the directory and start the watch again"),
			)
			return err
		}

		m.state = StateSleeping
		task.SetPhase(PhaseSleeping)
		timer.Reset(m.interval)
		select {
		case <-ctx.Done():
			m.state = StateStopped
			logger.Info("watch stopped", logging.String(logging.FieldEventType, "watch_stopped"))
			return fmt.Errorf("%w: watch %s: %w", services.ErrCanceled, m.path, ctx.Err())
		case <-timer.C:
		}
	}
}

// Scan lists the directory once and enqueues ingests for files that reached
// the stable pass count.
func (m *Monitor) Scan(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	entries, err := os.ReadDir(m.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDirectoryUnavailable, m.path, err)
	}

	next := make(map[string]WatchedFile, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		info, err := fileInfo(m.path, entry)
		if err != nil || !info.Mode().IsRegular() {
			// Removed between listing and stat, or not a file.
			continue
		}
		name := entry.Name()
		names = append(names, name)
		current := WatchedFile{Size: info.Size(), ModTime: info.ModTime(), Pass: 1}

		prev, seen := m.files[name]
		switch {
		case !seen:
		case prev.Processing != "":
			current.Pass = prev.Pass
			current.Processing = prev.Processing
		case current.Size == prev.Size || current.ModTime.Equal(prev.ModTime):
			current.Pass = prev.Pass + 1
		}
		next[name] = current
	}
	sort.Strings(names)

	for _, name := range names {
		file := next[name]
		if file.Processing != "" || file.Pass < stablePasses {
			continue
		}
		input := filepath.Join(m.path, name)
		id, err := m.enqueuer.EnqueueIngest(ctx, input, m.outputDir)
		if err != nil {
			logging.WarnWithContext(logger, "ingest enqueue failed; retrying next scan", "watch_enqueue_failed",
				logging.String("file", input),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file stays in the watch folder until the next attempt"),
			)
			continue
		}
		file.Processing = id
		next[name] = file
		logger.Info("stable file queued for ingest",
			logging.String("file", input),
			logging.String(logging.FieldJobID, id),
			logging.String(logging.FieldEventType, "watch_enqueued"),
		)
	}
	m.files = next
	return nil
}

type jobQueue interface {
	Enqueue(ctx context.Context, args queue.Args, opts ...queue.EnqueueOption) (*queue.Job, error)
}

// QueueEnqueuer submits ingests straight to the job queue.
type QueueEnqueuer struct {
	Queue     jobQueue
	Framerate int
}

// EnqueueIngest implements Enqueuer.
func (q QueueEnqueuer) EnqueueIngest(ctx context.Context, input, outputDir string) (string, error) {
	job, err := q.Queue.Enqueue(ctx, queue.IngestArgs{Input: input, OutputDir: outputDir, Framerate: q.Framerate})
	if err != nil {
		return "", err
	}
	return job.ID, nil
}

// fileInfo stats entry, following symlinks so a linked-in recording is
// watched by the size and mtime of its target.
func fileInfo(dir string, entry os.DirEntry) (os.FileInfo, error) {
	if entry.Type()&os.ModeSymlink != 0 {
		return os.Stat(filepath.Join(dir, entry.Name()))
	}
	return entry.Info()
}
