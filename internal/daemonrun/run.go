package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"hackyplayer/internal/api"
	"hackyplayer/internal/build"
	"hackyplayer/internal/config"
	"hackyplayer/internal/daemon"
	"hackyplayer/internal/deps"
	"hackyplayer/internal/ingest"
	"hackyplayer/internal/ipc"
	"hackyplayer/internal/logging"
	"hackyplayer/internal/notifications"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/runner"
	"hackyplayer/internal/watchfolder"
	"hackyplayer/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the hackyplayer daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logPath := logging.DaemonLogPath(cfg, time.Now())
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update hackyplayer.log link: %v\n", err)
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	pool := newPool(cfg, store, logger)

	catalog, err := api.LoadCatalog(cfg.Talks.CatalogPath)
	if err != nil {
		logger.Warn("talk catalogue unavailable",
			logging.Error(err),
			logging.String("catalog_path", cfg.Talks.CatalogPath),
			logging.String(logging.FieldEventType, "catalog_load_failed"),
			logging.String(logging.FieldErrorHint, "check talks.catalog_path points at a readable JSON file"),
			logging.String(logging.FieldImpact, "builds fall back to the talk id as output name"),
		)
		catalog = nil
	}
	supervisor := api.NewSupervisor(cfg, store, catalog)

	d, err := daemon.New(cfg, store, logger, pool, supervisor, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon may not process queued jobs"),
		)
	}

	<-signalCtx.Done()
	logger.Info("hackyplayer daemon shutting down")
	return nil
}

func newPool(cfg *config.Config, store *queue.Store, logger *slog.Logger) *workflow.Pool {
	exec := runner.New(logger)
	pool := workflow.NewPool(cfg, store, logger, workflow.WithNotifier(notifications.NewService(cfg)))
	pool.Register(queue.KindBuild, workflow.BuildHandler(build.New(cfg, exec)))
	pool.Register(queue.KindIngest, workflow.IngestHandler(ingest.New(cfg, exec)))
	pool.Register(queue.KindWatch, workflow.WatchHandler(watchfolder.QueueEnqueuer{Queue: store, Framerate: cfg.Build.Framerate}))
	return pool
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "hackyplayer.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []any{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Int("watch_folders", len(cfg.WatchFolders)),
		logging.Int("workers", cfg.Workflow.WorkerCount),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	}
	for _, status := range deps.CheckBinaries(deps.ToolRequirements(cfg)) {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", attrs...)
}
