package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hackyplayer/internal/build"
	"hackyplayer/internal/config"
	"hackyplayer/internal/logging"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/services"
	"hackyplayer/internal/testsupport"
)

type stubNotifier struct {
	mu       sync.Mutex
	builds   []string
	ingests  []string
	failures []string
}

func (s *stubNotifier) NotifyBuildCompleted(_ context.Context, title, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds = append(s.builds, title)
	return nil
}

func (s *stubNotifier) NotifyIngestCompleted(_ context.Context, input, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingests = append(s.ingests, input)
	return nil
}

func (s *stubNotifier) NotifyJobFailed(_ context.Context, kind, label string, _ error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, kind+":"+label)
	return nil
}

func (s *stubNotifier) TestNotification(context.Context) error { return nil }

func (s *stubNotifier) snapshot() (builds, failures []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.builds...), append([]string(nil), s.failures...)
}

func newTestPool(t *testing.T, cfg *config.Config, store *queue.Store, notifier *stubNotifier) *Pool {
	t.Helper()
	pool := NewPool(cfg, store, logging.NewNop(),
		WithNotifier(notifier),
		WithIntervals(10*time.Millisecond, 10*time.Millisecond, 10*time.Millisecond),
		WithProgressInterval(0),
	)
	t.Cleanup(pool.Stop)
	return pool
}

func waitForStatus(t *testing.T, store *queue.Store, id string, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job.Status == want {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s status = %s, want %s", id, job.Status, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPoolCompletesJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &stubNotifier{}
	pool := newTestPool(t, cfg, store, notifier)

	pool.Register(queue.KindBuild, func(ctx context.Context, task *Task, job *queue.Job) (string, error) {
		task.SetPhase("Running main build")
		task.Progress(4, 16)
		return "/out/talk.mp4", nil
	})
	job := testsupport.MustEnqueue(t, store, testsupport.SampleBuild("/src/talk.mov"))

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := waitForStatus(t, store, job.ID, queue.StatusSucceeded)
	if done.Result != "/out/talk.mp4" {
		t.Fatalf("result = %q", done.Result)
	}
	if done.FinishedAt == nil || done.Node == "" || done.WorkerID == "" {
		t.Fatalf("expected finish time, node and worker, got %+v", done)
	}

	deadline := time.Now().Add(time.Second)
	for {
		builds, _ := notifier.snapshot()
		if len(builds) == 1 && builds[0] == "Hacking the Mainframe" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected build notification, got %v", builds)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPoolRecordsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &stubNotifier{}
	pool := newTestPool(t, cfg, store, notifier)

	pool.Register(queue.KindBuild, func(context.Context, *Task, *queue.Job) (string, error) {
		return "", services.Wrap(services.ErrExternalTool, "build", "main", "ffmpeg exited with status 1", nil)
	})
	job := testsupport.MustEnqueue(t, store, testsupport.SampleBuild("/src/talk.mov"))
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	failed := waitForStatus(t, store, job.ID, queue.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Fatal("expected error message to be persisted")
	}
	time.Sleep(20 * time.Millisecond)
	if _, failures := notifier.snapshot(); len(failures) != 1 || failures[0] != "build:Hacking the Mainframe" {
		t.Fatalf("unexpected failure notifications %v", failures)
	}
	if status := pool.Status(context.Background()); status.LastError == "" {
		t.Fatal("expected last error in status summary")
	}
}

func TestPoolRevokesRunningJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	pool := newTestPool(t, cfg, store, &stubNotifier{})

	started := make(chan struct{})
	pool.Register(queue.KindBuild, func(ctx context.Context, task *Task, job *queue.Job) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})
	job := testsupport.MustEnqueue(t, store, testsupport.SampleBuild("/src/talk.mov"))
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never started")
	}
	if _, err := store.Revoke(context.Background(), job.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	revoked := waitForStatus(t, store, job.ID, queue.StatusRevoked)
	if revoked.ErrorMessage != queue.RevokedByUser {
		t.Fatalf("error message = %q, want %q", revoked.ErrorMessage, queue.RevokedByUser)
	}
}

func TestPoolFailsUnknownKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	pool := newTestPool(t, cfg, store, &stubNotifier{})
	pool.Register(queue.KindBuild, func(context.Context, *Task, *queue.Job) (string, error) { return "", nil })

	job := testsupport.MustEnqueue(t, store, queue.IngestArgs{Input: "/in/cam.mov", OutputDir: "/out"})
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForStatus(t, store, job.ID, queue.StatusFailed)
}

func TestPoolStartRequeuesOrphanedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.MustEnqueue(t, store, testsupport.SampleBuild("/src/talk.mov"))
	if _, err := store.Claim(context.Background(), "old-worker"); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	pool := newTestPool(t, cfg, store, &stubNotifier{})
	pool.Register(queue.KindBuild, func(context.Context, *Task, *queue.Job) (string, error) { return "/out/x.mp4", nil })
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForStatus(t, store, job.ID, queue.StatusSucceeded)
}

func TestPoolStartRequiresHandlers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	pool := newTestPool(t, cfg, store, &stubNotifier{})
	if err := pool.Start(context.Background()); err == nil {
		t.Fatal("expected error without handlers")
	}
}

func TestPoolStopLeavesJobRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	pool := NewPool(cfg, store, logging.NewNop(),
		WithNotifier(&stubNotifier{}),
		WithIntervals(10*time.Millisecond, time.Hour, time.Hour),
	)

	started := make(chan struct{})
	pool.Register(queue.KindBuild, func(ctx context.Context, task *Task, job *queue.Job) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})
	job := testsupport.MustEnqueue(t, store, testsupport.SampleBuild("/src/talk.mov"))
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-started
	pool.Stop()

	got, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != queue.StatusRunning {
		t.Fatalf("status after shutdown = %s, want running", got.Status)
	}
}

func TestTaskThrottlesProgressButNotPhase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.MustEnqueue(t, store, testsupport.SampleBuild("/src/talk.mov"))
	job, err := store.Claim(context.Background(), "w1")
	if err != nil || job == nil {
		t.Fatalf("Claim: %v", err)
	}

	task := newTask(context.Background(), store, job, logging.NewNop(), time.Hour)
	task.Progress(1, 16)
	task.Progress(8, 16)

	got, _ := store.Get(context.Background(), job.ID)
	if got.ProgressCurrent != 1 {
		t.Fatalf("persisted progress = %v, want first update only", got.ProgressCurrent)
	}
	if _, current, _ := task.Snapshot(); current != 8 {
		t.Fatalf("in-memory progress = %v, want 8", current)
	}

	task.SetPhase("Running main build")
	got, _ = store.Get(context.Background(), job.ID)
	if got.Phase != "Running main build" || got.ProgressCurrent != 0 {
		t.Fatalf("phase change not persisted: %+v", got)
	}
}

func TestTaskPersistsFinalProgressDespiteThrottle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.MustEnqueue(t, store, testsupport.SampleBuild("/src/talk.mov"))
	job, err := store.Claim(context.Background(), "w1")
	if err != nil || job == nil {
		t.Fatalf("Claim: %v", err)
	}

	task := newTask(context.Background(), store, job, logging.NewNop(), time.Hour)
	task.SetPhase("Running main build")
	task.Progress(4, 16)
	task.Progress(16, 16)

	got, _ := store.Get(context.Background(), job.ID)
	if got.ProgressCurrent != 16 || got.ProgressTotal != 16 {
		t.Fatalf("persisted progress = %v/%v, want 16/16", got.ProgressCurrent, got.ProgressTotal)
	}
}

func TestMaintenanceReclaimsAndPurges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.HeartbeatTimeout = 60
	cfg.Workflow.ResultRetentionHours = 1
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	finished := testsupport.MustEnqueue(t, store, testsupport.SampleBuild("/src/a.mov"))
	if _, err := store.Claim(ctx, "w1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Complete(ctx, finished.ID, "/out/a.mp4"); err != nil {
		t.Fatal(err)
	}
	stale := testsupport.MustEnqueue(t, store, testsupport.SampleBuild("/src/b.mov"))
	if _, err := store.Claim(ctx, "w1"); err != nil {
		t.Fatal(err)
	}

	m := NewMaintenance(cfg, store, logging.NewNop())
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	report := m.RunOnce(ctx)
	if report.Reclaimed != 1 || report.Purged != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, err := store.Get(ctx, finished.ID); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected purged job to be gone, got %v", err)
	}
	if got, _ := store.Get(ctx, stale.ID); got.Status != queue.StatusPending {
		t.Fatalf("stale job status = %s, want pending", got.Status)
	}
}

func TestMaintenancePrunesIdleWorkDirs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.HeartbeatTimeout = 0
	cfg.Workflow.ResultRetentionHours = 1
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	running := testsupport.MustEnqueue(t, store, testsupport.SampleBuild("/src/a.mov"))
	if _, err := store.Claim(ctx, "w1"); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-3 * time.Hour)
	activeDir := filepath.Join(cfg.Paths.TempDir, "talk-20260101-090000"+build.WorkDirSuffix(running.ID))
	staleDir := filepath.Join(cfg.Paths.TempDir, "talk-20260101-080000-deadbeef")
	for _, dir := range []string{activeDir, staleDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(dir, old, old); err != nil {
			t.Fatal(err)
		}
	}

	report := NewMaintenance(cfg, store, logging.NewNop()).RunOnce(ctx)
	if report.WorkDirsPruned != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, err := os.Stat(activeDir); err != nil {
		t.Fatalf("running build work dir removed: %v", err)
	}
	if _, err := os.Stat(staleDir); !os.IsNotExist(err) {
		t.Fatalf("expected stale work dir removed, got %v", err)
	}
}

func TestMaintenanceRejectsBadSchedule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.PurgeSchedule = "not a schedule"
	store := testsupport.MustOpenStore(t, cfg)
	m := NewMaintenance(cfg, store, logging.NewNop())
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected schedule parse error")
	}
}
