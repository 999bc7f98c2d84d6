package watchfolder

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hackyplayer/internal/logging"
	"hackyplayer/internal/services"
	"hackyplayer/internal/testsupport"
)

type recordingEnqueuer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingEnqueuer) EnqueueIngest(_ context.Context, input, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.calls = append(r.calls, input)
	return "job-" + filepath.Base(input), nil
}

func (r *recordingEnqueuer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type phaseTask struct {
	mu     sync.Mutex
	phases []string
}

func (p *phaseTask) Logger() *slog.Logger { return logging.NewNop() }

func (p *phaseTask) SetPhase(phase string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phases = append(p.phases, phase)
}

func scan(t *testing.T, m *Monitor) {
	t.Helper()
	if err := m.Scan(context.Background(), nil); err != nil {
		t.Fatalf("Scan: %v", err)
	}
}

func TestScanEnqueuesAfterThreeStablePasses(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "cam1.mov"), 128)
	enq := &recordingEnqueuer{}
	m := New(dir, "/out", enq)

	scan(t, m)
	if got := m.Files()["cam1.mov"].Pass; got != 1 {
		t.Fatalf("first sighting pass = %d, want 1", got)
	}
	scan(t, m)
	if enq.count() != 0 {
		t.Fatal("enqueued before third pass")
	}
	scan(t, m)
	if enq.count() != 1 {
		t.Fatalf("expected one enqueue on third pass, got %d", enq.count())
	}
	if got := m.Files()["cam1.mov"].Processing; got != "job-cam1.mov" {
		t.Fatalf("expected processing job id, got %q", got)
	}

	scan(t, m)
	scan(t, m)
	if enq.count() != 1 {
		t.Fatalf("processing file enqueued again: %d calls", enq.count())
	}
}

func TestScanAdvancesWhenEitherSizeOrMtimeUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "growing.mov")
	testsupport.WriteFile(t, path, 100)
	fixed := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, fixed, fixed); err != nil {
		t.Fatal(err)
	}
	m := New(dir, "/out", &recordingEnqueuer{})
	scan(t, m)

	// Size changes while mtime is pinned: still counts as unchanged.
	testsupport.WriteFile(t, path, 200)
	if err := os.Chtimes(path, fixed, fixed); err != nil {
		t.Fatal(err)
	}
	scan(t, m)
	if got := m.Files()["growing.mov"].Pass; got != 2 {
		t.Fatalf("pass after size-only change = %d, want 2", got)
	}

	// Both change: the file starts over.
	testsupport.WriteFile(t, path, 300)
	later := fixed.Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	scan(t, m)
	if got := m.Files()["growing.mov"].Pass; got != 1 {
		t.Fatalf("pass after size and mtime change = %d, want 1", got)
	}
}

func TestScanRetriesFailedEnqueue(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "cam.mov"), 10)
	enq := &recordingEnqueuer{err: errors.New("queue busy")}
	m := New(dir, "/out", enq)

	for i := 0; i < 3; i++ {
		scan(t, m)
	}
	if m.Files()["cam.mov"].Processing != "" {
		t.Fatal("expected no processing id after failed enqueue")
	}
	enq.mu.Lock()
	enq.err = nil
	enq.mu.Unlock()
	scan(t, m)
	if enq.count() != 1 {
		t.Fatalf("expected retry to enqueue, got %d", enq.count())
	}
}

func TestScanIgnoresDirectoriesAndForgetsRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "Processed"), 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "cam.mov")
	testsupport.WriteFile(t, path, 10)
	m := New(dir, "/out", &recordingEnqueuer{})
	scan(t, m)
	if _, ok := m.Files()["Processed"]; ok {
		t.Fatal("directory tracked as a file")
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	scan(t, m)
	if len(m.Files()) != 0 {
		t.Fatalf("expected empty table, got %v", m.Files())
	}
}

func TestScanFollowsSymlinkedFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(t.TempDir(), "cam2.mov")
	testsupport.WriteFile(t, target, 64)
	if err := os.Symlink(target, filepath.Join(dir, "cam2.mov")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink(t.TempDir(), filepath.Join(dir, "linked-dir")); err != nil {
		t.Fatalf("symlink dir: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "missing.mov"), filepath.Join(dir, "dangling.mov")); err != nil {
		t.Fatalf("symlink dangling: %v", err)
	}
	enq := &recordingEnqueuer{}
	m := New(dir, "/out", enq)

	for range 3 {
		scan(t, m)
	}
	if got := m.Files()["cam2.mov"].Pass; got != 3 {
		t.Fatalf("symlinked file pass = %d, want 3", got)
	}
	if enq.count() != 1 || enq.calls[0] != filepath.Join(dir, "cam2.mov") {
		t.Fatalf("expected symlinked file enqueued once, got %v", enq.calls)
	}
	if len(m.Files()) != 1 {
		t.Fatalf("expected only the linked file tracked, got %v", m.Files())
	}
}

func TestRunStopsWhenDirectoryRemoved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "watch")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	m := New(dir, "/out", &recordingEnqueuer{}, withInterval(10*time.Millisecond))
	task := &phaseTask{}

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background(), task) }()
	time.Sleep(30 * time.Millisecond)
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrDirectoryUnavailable) {
			t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after directory removal")
	}
	if m.State() != StateStopped {
		t.Fatalf("state = %s, want %s", m.State(), StateStopped)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	m := New(dir, "/out", &recordingEnqueuer{}, withInterval(10*time.Millisecond))
	task := &phaseTask{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, task) }()
	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !services.IsCanceled(err) {
			t.Fatalf("expected cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("monitor ignored cancellation")
	}
	task.mu.Lock()
	defer task.mu.Unlock()
	if len(task.phases) < 2 || task.phases[0] != PhaseScanning || task.phases[1] != PhaseSleeping {
		t.Fatalf("unexpected phases %v", task.phases)
	}
}

func TestMissingDirectoryOnFirstScan(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "absent"), "/out", &recordingEnqueuer{})
	if err := m.Run(context.Background(), &phaseTask{}); !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
	}
}
