package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"hackyplayer/internal/build"
	"hackyplayer/internal/config"
	"hackyplayer/internal/logging"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/staging"
)

// Maintenance periodically reclaims stale jobs, purges expired records and
// prunes old log files and build work directories.
type Maintenance struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	cron   *cron.Cron
	now    func() time.Time
}

// NewMaintenance constructs the scheduler. Call Start to begin running it.
func NewMaintenance(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Maintenance {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Maintenance{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "maintenance"),
		cron:   cron.New(),
		now:    time.Now,
	}
}

// Start registers the maintenance job on the configured schedule.
func (m *Maintenance) Start(ctx context.Context) error {
	schedule := m.cfg.Workflow.PurgeSchedule
	if _, err := m.cron.AddFunc(schedule, func() { m.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule maintenance %q: %w", schedule, err)
	}
	m.cron.Start()
	m.logger.Info("maintenance scheduled", logging.String("schedule", schedule))
	return nil
}

// Stop halts the scheduler and waits for a running pass to finish.
func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
}

// MaintenanceReport counts what a single pass changed.
type MaintenanceReport struct {
	Reclaimed      int64
	Purged         int64
	LogsPruned     int
	WorkDirsPruned int
}

// RunOnce performs one maintenance pass.
func (m *Maintenance) RunOnce(ctx context.Context) MaintenanceReport {
	var report MaintenanceReport
	now := m.now()

	if timeout := m.cfg.Workflow.HeartbeatTimeout; timeout > 0 {
		reclaimed, err := m.store.ReclaimStale(ctx, now.Add(-time.Duration(timeout)*time.Second))
		if err != nil {
			logging.WarnWithContext(m.logger, "reclaim stale jobs failed; stuck jobs may remain", "heartbeat_reclaim_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		report.Reclaimed = reclaimed
	}

	if hours := m.cfg.Workflow.ResultRetentionHours; hours > 0 {
		purged, err := m.store.PurgeFinished(ctx, now.Add(-time.Duration(hours)*time.Hour))
		if err != nil {
			logging.WarnWithContext(m.logger, "purge finished jobs failed", "queue_purge_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		report.Purged = purged
		report.WorkDirsPruned = m.pruneWorkDirs(ctx, time.Duration(hours)*time.Hour)
	}

	report.LogsPruned = logging.CleanupOldLogs(m.logger, m.cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: m.cfg.DaemonLogDir(), Pattern: "*.log"},
		logging.RetentionTarget{Dir: m.cfg.Paths.LogDir, Dirs: true, Exclude: []string{m.cfg.DaemonLogDir()}},
	)

	if report.Reclaimed > 0 || report.Purged > 0 || report.LogsPruned > 0 || report.WorkDirsPruned > 0 {
		m.logger.Info("maintenance pass complete",
			logging.Int64("reclaimed", report.Reclaimed),
			logging.Int64("purged", report.Purged),
			logging.Int("logs_pruned", report.LogsPruned),
			logging.Int("workdirs_pruned", report.WorkDirsPruned),
			logging.String(logging.FieldEventType, "maintenance_complete"),
		)
	}
	return report
}

// pruneWorkDirs removes build work directories older than maxAge, skipping
// any that belong to a build still running.
func (m *Maintenance) pruneWorkDirs(ctx context.Context, maxAge time.Duration) int {
	running, err := m.store.Active(ctx, queue.KindBuild)
	if err != nil {
		logging.WarnWithContext(m.logger, "list running builds failed; skipping work directory cleanup", "workdir_cleanup_skipped",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
		return 0
	}
	suffixes := make([]string, 0, len(running))
	for _, job := range running {
		suffixes = append(suffixes, build.WorkDirSuffix(job.ID))
	}
	keep := func(name string) bool {
		for _, suffix := range suffixes {
			if strings.HasSuffix(name, suffix) {
				return true
			}
		}
		return false
	}
	result := staging.PruneStale(ctx, m.cfg.Paths.TempDir, maxAge, keep, m.logger)
	return len(result.Removed)
}
