package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"hackyplayer/internal/api"
	"hackyplayer/internal/config"
	"hackyplayer/internal/logging"
	"hackyplayer/internal/notifications"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/workflow"
)

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *queue.Store
	pool        *workflow.Pool
	maintenance *workflow.Maintenance
	supervisor  *api.Supervisor
	logPath     string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, pool *workflow.Pool, supervisor *api.Supervisor, logPath string) (*Daemon, error) {
	if cfg == nil || store == nil || pool == nil || supervisor == nil {
		return nil, errors.New("daemon requires config, store, worker pool, and supervisor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		store:       store,
		pool:        pool,
		maintenance: workflow.NewMaintenance(cfg, store, logger),
		supervisor:  supervisor,
		logPath:     logPath,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the worker pool and the
// maintenance schedule.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another hackyplayer daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.pool.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start worker pool: %w", err)
	}
	if err := d.maintenance.Start(runCtx); err != nil {
		d.pool.Stop()
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start maintenance: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("hackyplayer daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("pid", os.Getpid()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Swap(false) {
		return
	}
	d.maintenance.Stop()
	d.pool.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_unlock_failed"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.logger.Info("hackyplayer daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Supervisor returns the task supervisor serving status and control calls.
func (d *Daemon) Supervisor() *api.Supervisor {
	return d.supervisor
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// RunMaintenance performs one reclaim, purge and log pruning pass now.
func (d *Daemon) RunMaintenance(ctx context.Context) workflow.MaintenanceReport {
	return d.maintenance.RunOnce(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
