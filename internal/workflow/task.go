package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hackyplayer/internal/logging"
	"hackyplayer/internal/queue"
)

// Task is the handle a running job reports through. Phase changes are
// persisted immediately; progress updates are throttled.
type Task struct {
	ctx      context.Context
	store    *queue.Store
	id       string
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	phase     string
	current   float64
	total     float64
	lastWrite time.Time
	flushed   bool
	sampler   *logging.ProgressSampler
}

func newTask(ctx context.Context, store *queue.Store, job *queue.Job, logger *slog.Logger, interval time.Duration) *Task {
	return &Task{
		ctx:      ctx,
		store:    store,
		id:       job.ID,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		phase:    job.Phase,
		sampler:  logging.NewProgressSampler(10),
	}
}

// ID returns the job identifier.
func (t *Task) ID() string { return t.id }

// Logger returns the job-scoped logger.
func (t *Task) Logger() *slog.Logger { return t.logger }

// SetPhase records a new running phase and resets progress counters.
func (t *Task) SetPhase(phase string) {
	t.mu.Lock()
	if phase == t.phase {
		t.mu.Unlock()
		return
	}
	t.phase = phase
	t.current, t.total = 0, 0
	t.lastWrite = t.now()
	t.flushed = false
	t.mu.Unlock()

	if err := t.store.SetPhase(t.ctx, t.id, phase); err != nil {
		t.logWriteFailure("phase", err)
	}
	t.logger.Debug("job phase changed", logging.String(logging.FieldStage, phase))
}

// Progress reports seconds processed out of total for the current phase.
// The update completing a phase is always persisted, once.
func (t *Task) Progress(current, total float64) {
	t.mu.Lock()
	t.current, t.total = current, total
	phase := t.phase
	now := t.now()
	final := total > 0 && current >= total
	due := t.lastWrite.IsZero() || now.Sub(t.lastWrite) >= t.interval || (final && !t.flushed)
	if due {
		t.lastWrite = now
		t.flushed = final
	}
	percent := -1.0
	if total > 0 {
		percent = current * 100 / total
	}
	logIt := t.sampler.ShouldLog(phase, percent)
	t.mu.Unlock()

	if due {
		if err := t.store.UpdateProgress(t.ctx, t.id, phase, current, total); err != nil {
			t.logWriteFailure("progress", err)
		}
	}
	if logIt && percent >= 0 {
		t.logger.Info("job progress",
			logging.String(logging.FieldStage, phase),
			logging.Float64("percent", percent),
			logging.String(logging.FieldEventType, "job_progress"),
		)
	}
}

// Snapshot returns the phase and counters last reported.
func (t *Task) Snapshot() (phase string, current, total float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase, t.current, t.total
}

func (t *Task) logWriteFailure(what string, err error) {
	if t.ctx.Err() != nil || queue.IsNotRunning(err) {
		return
	}
	t.logger.Warn("job "+what+" update failed",
		logging.Error(err),
		logging.String(logging.FieldEventType, "job_progress_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
		logging.String(logging.FieldImpact, "status views may lag behind the running job"),
	)
}
