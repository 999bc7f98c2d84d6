package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hackyplayer/internal/api"
	"hackyplayer/internal/config"
	"hackyplayer/internal/daemon"
	"hackyplayer/internal/ipc"
	"hackyplayer/internal/logging"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/testsupport"
	"hackyplayer/internal/workflow"
)

func startServer(t *testing.T) (*ipc.Client, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDir, "stage-a.mp4"), 64)

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	pool := workflow.NewPool(cfg, store, logger,
		workflow.WithIntervals(10*time.Millisecond, 10*time.Millisecond, 10*time.Millisecond),
	)
	pool.Register(queue.KindBuild, func(ctx context.Context, _ *workflow.Task, _ *queue.Job) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	d, err := daemon.New(cfg, store, logger, pool, api.NewSupervisor(cfg, store, nil), "")
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, cfg
}

func TestIPCBuildLifecycle(t *testing.T) {
	client, cfg := startServer(t)

	if _, err := client.Build(ipc.BuildRequest{Video: "stage-a.mp4", StartTC: "00:00:05:00", EndTC: "00:00:01:00"}); err == nil {
		t.Fatal("expected build with end before start to be rejected")
	}

	built, err := client.Build(ipc.BuildRequest{
		Video:     "stage-a.mp4",
		Title:     "Hacking the Mainframe",
		Presenter: "Ada Lovelace",
		StartTC:   "00:00:05:00",
		EndTC:     "00:00:15:00",
	})
	if err != nil {
		t.Fatalf("Build RPC failed: %v", err)
	}
	if built.ID == "" {
		t.Fatal("expected job id")
	}

	tasks, err := client.Tasks()
	if err != nil {
		t.Fatalf("Tasks RPC failed: %v", err)
	}
	if len(tasks.Tasks) != 1 || tasks.Tasks[0].ID != built.ID || tasks.Tasks[0].State != "pending" {
		t.Fatalf("unexpected tasks %+v", tasks.Tasks)
	}
	if tasks.Tasks[0].Title != "Hacking the Mainframe" || tasks.Tasks[0].InTC != "00:00:05:00" {
		t.Fatalf("unexpected task fields %+v", tasks.Tasks[0])
	}

	cancelled, err := client.Cancel(built.ID)
	if err != nil {
		t.Fatalf("Cancel RPC failed: %v", err)
	}
	if cancelled.Job.Status != string(queue.StatusRevoked) {
		t.Fatalf("expected revoked job, got %+v", cancelled.Job)
	}
	described, err := client.Describe(built.ID)
	if err != nil {
		t.Fatalf("Describe RPC failed: %v", err)
	}
	if described.Job.Kind != string(queue.KindBuild) || described.Job.Status != string(queue.StatusRevoked) {
		t.Fatalf("unexpected description %+v", described.Job)
	}
	if _, err := client.Describe("missing"); err == nil {
		t.Fatal("expected error describing unknown job")
	}

	logDir := cfg.JobLogDir(built.ID)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(logDir, "build.log"), []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	tail, err := client.LogTail(ipc.LogTailRequest{ID: built.ID, Lines: 2, Offset: -1})
	if err != nil {
		t.Fatalf("LogTail RPC failed: %v", err)
	}
	if strings.Join(tail.Lines, ",") != "two,three" {
		t.Fatalf("unexpected tail %+v", tail)
	}
	rest, err := client.LogTail(ipc.LogTailRequest{ID: built.ID, File: "build.log", Offset: 4})
	if err != nil {
		t.Fatalf("LogTail from offset failed: %v", err)
	}
	if strings.Join(rest.Lines, ",") != "two,three" || rest.Offset != tail.Offset {
		t.Fatalf("unexpected offset read %+v", rest)
	}

	health, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth RPC failed: %v", err)
	}
	if !health.DatabaseExists || health.TotalJobs != 1 {
		t.Fatalf("unexpected database health %+v", health)
	}
}

func TestIPCWatchFolders(t *testing.T) {
	client, _ := startServer(t)

	started, err := client.WatchStart("input")
	if err != nil {
		t.Fatalf("WatchStart RPC failed: %v", err)
	}
	if started.ID == "" || started.AlreadyRunning {
		t.Fatalf("unexpected start response %+v", started)
	}
	again, err := client.WatchStart("input")
	if err != nil {
		t.Fatalf("second WatchStart RPC failed: %v", err)
	}
	if !again.AlreadyRunning || again.ID != started.ID {
		t.Fatalf("expected existing monitor %s, got %+v", started.ID, again)
	}
	if _, err := client.WatchStart("nope"); err == nil {
		t.Fatal("expected unknown folder to be rejected")
	}

	list, err := client.Watches()
	if err != nil {
		t.Fatalf("Watches RPC failed: %v", err)
	}
	if len(list.Folders) != 1 || list.Folders[0].ID != started.ID || list.Folders[0].Name != "input" {
		t.Fatalf("unexpected watch folders %+v", list.Folders)
	}

	stopped, err := client.WatchStop("input")
	if err != nil {
		t.Fatalf("WatchStop RPC failed: %v", err)
	}
	if len(stopped.IDs) != 1 || stopped.IDs[0] != started.ID {
		t.Fatalf("unexpected stop response %+v", stopped)
	}
	list, err = client.Watches()
	if err != nil {
		t.Fatalf("Watches RPC failed: %v", err)
	}
	if list.Folders[0].State != "stopped" {
		t.Fatalf("expected stopped folder, got %+v", list.Folders[0])
	}
}

func TestIPCStartStopStatus(t *testing.T) {
	client, _ := startServer(t)

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}
	again, err := client.Start()
	if err != nil {
		t.Fatalf("second Start RPC failed: %v", err)
	}
	if again.Started || again.Message == "" {
		t.Fatalf("expected second start to report a message, got %+v", again)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || !status.Workflow.Running || status.PID != os.Getpid() {
		t.Fatalf("unexpected status %+v", status)
	}

	report, err := client.Maintenance()
	if err != nil {
		t.Fatalf("Maintenance RPC failed: %v", err)
	}
	if report.Reclaimed != 0 || report.Purged != 0 {
		t.Fatalf("expected empty maintenance report, got %+v", report)
	}

	notify, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification RPC failed: %v", err)
	}
	if notify.Sent {
		t.Fatalf("expected no notification without topic, got %+v", notify)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected Stopped=true")
	}
	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}
