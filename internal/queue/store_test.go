package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hackyplayer/internal/queue"
	"hackyplayer/internal/testsupport"
)

func TestEnqueueAssignsIDAndRoundTripsArgs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	args := testsupport.SampleBuild("/videos/day1/room-a.mp4")
	args.Talk.Description = "A talk about mainframes"
	job := testsupport.MustEnqueue(t, store, args)
	if job.ID == "" {
		t.Fatal("expected job id to be assigned")
	}
	if job.Status != queue.StatusPending || job.Kind != queue.KindBuild {
		t.Fatalf("unexpected job: %+v", job)
	}

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	build, ok := fetched.Build()
	if !ok {
		t.Fatalf("expected build args, got %T", fetched.Args)
	}
	if build.Talk.Description != "A talk about mainframes" || build.EndTC != "00:00:15:00" {
		t.Fatalf("args did not round-trip: %+v", build)
	}
}

func TestEnqueueRejectsInvalidArgs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Enqueue(context.Background(), queue.IngestArgs{Input: "/in.mov"})
	if !errors.Is(err, queue.ErrInvalidArgs) {
		t.Fatalf("expected ErrInvalidArgs, got %v", err)
	}
}

func TestGetUnknownReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.Get(context.Background(), "does-not-exist"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimIsFIFO(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.MustEnqueue(t, store, queue.IngestArgs{Input: "/in/a.mov", OutputDir: "/out"})
	second := testsupport.MustEnqueue(t, store, queue.IngestArgs{Input: "/in/b.mov", OutputDir: "/out"})

	claimed, err := store.Claim(ctx, "worker-1")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("expected first job, got %+v", claimed)
	}
	if claimed.Status != queue.StatusRunning || claimed.WorkerID != "worker-1" || claimed.StartedAt == nil {
		t.Fatalf("claimed job not marked running: %+v", claimed)
	}

	next, err := store.Claim(ctx, "worker-2")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if next == nil || next.ID != second.ID {
		t.Fatalf("expected second job, got %+v", next)
	}

	none, err := store.Claim(ctx, "worker-3")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected empty queue, got %+v", none)
	}
}

func TestConcurrentClaimsNeverShareAJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const jobs = 8
	for i := 0; i < jobs; i++ {
		testsupport.MustEnqueue(t, store, queue.IngestArgs{Input: "/in/" + string(rune('a'+i)) + ".mov", OutputDir: "/out"})
	}

	var (
		mu   sync.Mutex
		seen = map[string]int{}
		wg   sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := store.Claim(ctx, "worker")
				if err != nil {
					t.Errorf("Claim failed: %v", err)
					return
				}
				if job == nil {
					return
				}
				mu.Lock()
				seen[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != jobs {
		t.Fatalf("expected %d claimed jobs, got %d", jobs, len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("job %s claimed %d times", id, count)
		}
	}
}

func TestSingletonRejectsLiveDuplicate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	args := queue.WatchArgs{Name: "input", Path: "/watch/input", OutputDir: "/watch/out"}
	first := testsupport.MustEnqueue(t, store, args, queue.WithSingleton())

	_, err := store.Enqueue(ctx, queue.WatchArgs{Name: "input", Path: "/watch/input/", OutputDir: "/watch/out"}, queue.WithSingleton())
	if !errors.Is(err, queue.ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
	var dup *queue.DuplicateJobError
	if !errors.As(err, &dup) || dup.ExistingID != first.ID {
		t.Fatalf("expected duplicate to reference %s, got %v", first.ID, err)
	}

	if _, err := store.Revoke(ctx, first.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := store.Enqueue(ctx, args, queue.WithSingleton()); err != nil {
		t.Fatalf("expected enqueue after revoke to succeed, got %v", err)
	}
}

func TestNonSingletonAllowsDuplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	args := testsupport.SampleBuild("/videos/a.mp4")
	testsupport.MustEnqueue(t, store, args)
	testsupport.MustEnqueue(t, store, args)

	jobs, err := store.Scheduled(context.Background(), queue.KindBuild)
	if err != nil {
		t.Fatalf("Scheduled failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 scheduled builds, got %d", len(jobs))
	}
}

func TestRevokePendingRunningAndTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	running := testsupport.MustEnqueue(t, store, queue.IngestArgs{Input: "/in/a.mov", OutputDir: "/out"})
	pending := testsupport.MustEnqueue(t, store, queue.IngestArgs{Input: "/in/b.mov", OutputDir: "/out"})
	if _, err := store.Claim(ctx, "worker-1"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	revoked, err := store.Revoke(ctx, pending.ID)
	if err != nil {
		t.Fatalf("Revoke pending failed: %v", err)
	}
	if revoked.Status != queue.StatusRevoked || revoked.ErrorMessage != queue.RevokedBeforeStart {
		t.Fatalf("pending job not revoked: %+v", revoked)
	}

	flagged, err := store.Revoke(ctx, running.ID)
	if err != nil {
		t.Fatalf("Revoke running failed: %v", err)
	}
	if flagged.Status != queue.StatusRunning || !flagged.CancelRequested {
		t.Fatalf("running job not flagged: %+v", flagged)
	}
	requested, err := store.CancelRequested(ctx, running.ID)
	if err != nil || !requested {
		t.Fatalf("expected cancel requested, got %v (%v)", requested, err)
	}

	if err := store.MarkRevoked(ctx, running.ID, queue.RevokedByUser); err != nil {
		t.Fatalf("MarkRevoked failed: %v", err)
	}
	again, err := store.Revoke(ctx, running.ID)
	if err != nil {
		t.Fatalf("Revoke terminal failed: %v", err)
	}
	if again.Status != queue.StatusRevoked {
		t.Fatalf("terminal job changed: %+v", again)
	}

	if _, err := store.Revoke(ctx, "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTerminalWritesRequireRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.MustEnqueue(t, store, queue.IngestArgs{Input: "/in/a.mov", OutputDir: "/out"})
	if err := store.Complete(ctx, job.ID, "/out/a.mp4"); !queue.IsNotRunning(err) {
		t.Fatalf("expected ErrNotRunning for pending job, got %v", err)
	}

	if _, err := store.Claim(ctx, "worker-1"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := store.UpdateProgress(ctx, job.ID, "transcoding", 30, 120); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	mid, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if mid.Phase != "transcoding" || mid.Percent() != 25 {
		t.Fatalf("unexpected progress: phase=%q percent=%v", mid.Phase, mid.Percent())
	}

	if err := store.Complete(ctx, job.ID, "/out/a.mp4"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	done, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if done.Status != queue.StatusSucceeded || done.Result != "/out/a.mp4" || done.FinishedAt == nil {
		t.Fatalf("unexpected terminal job: %+v", done)
	}
	if err := store.Fail(ctx, job.ID, "late failure"); !queue.IsNotRunning(err) {
		t.Fatalf("expected terminal job to reject Fail, got %v", err)
	}
}

func TestReclaimStaleRequeuesOrRevokes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	plain := testsupport.MustEnqueue(t, store, queue.IngestArgs{Input: "/in/a.mov", OutputDir: "/out"})
	canceled := testsupport.MustEnqueue(t, store, queue.IngestArgs{Input: "/in/b.mov", OutputDir: "/out"})
	for i := 0; i < 2; i++ {
		if _, err := store.Claim(ctx, "worker"); err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
	}
	if _, err := store.Revoke(ctx, canceled.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	n, err := store.ReclaimStale(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStale failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected fresh heartbeats to survive, reclaimed %d", n)
	}

	n, err = store.ReclaimStale(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStale failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 reclaimed jobs, got %d", n)
	}

	requeued, _ := store.Get(ctx, plain.ID)
	if requeued.Status != queue.StatusPending || requeued.WorkerID != "" {
		t.Fatalf("expected plain job requeued, got %+v", requeued)
	}
	revoked, _ := store.Get(ctx, canceled.ID)
	if revoked.Status != queue.StatusRevoked {
		t.Fatalf("expected canceled job revoked, got %+v", revoked)
	}
}

func TestResetRunningRequeuesEverything(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.MustEnqueue(t, store, queue.WatchArgs{Name: "input", Path: "/watch", OutputDir: "/out"}, queue.WithSingleton())
	if _, err := store.Claim(ctx, "worker"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if _, err := store.ResetRunning(ctx); err != nil {
		t.Fatalf("ResetRunning failed: %v", err)
	}
	fetched, _ := store.Get(ctx, job.ID)
	if fetched.Status != queue.StatusPending {
		t.Fatalf("expected pending after reset, got %s", fetched.Status)
	}
}

func TestPurgeFinishedKeepsLiveJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	done := testsupport.MustEnqueue(t, store, queue.IngestArgs{Input: "/in/a.mov", OutputDir: "/out"})
	live := testsupport.MustEnqueue(t, store, queue.IngestArgs{Input: "/in/b.mov", OutputDir: "/out"})
	if _, err := store.Claim(ctx, "worker"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := store.Fail(ctx, done.ID, "boom"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	n, err := store.PurgeFinished(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeFinished failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged job, got %d", n)
	}
	if _, err := store.Get(ctx, done.ID); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected purged job gone, got %v", err)
	}
	if _, err := store.Get(ctx, live.ID); err != nil {
		t.Fatalf("expected live job kept, got %v", err)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustEnqueue(t, store, queue.IngestArgs{Input: "/in/a.mov", OutputDir: "/out"})
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.IntegrityCheck || health.TotalJobs != 1 || health.SchemaVersion != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestSingletonKeyIsCanonical(t *testing.T) {
	a, err := queue.SingletonKey(queue.WatchArgs{Name: "input", Path: "/watch/input/", OutputDir: "/out"})
	if err != nil {
		t.Fatalf("SingletonKey failed: %v", err)
	}
	b, err := queue.SingletonKey(queue.WatchArgs{Name: " input", Path: "/watch//input", OutputDir: "/out/"})
	if err != nil {
		t.Fatalf("SingletonKey failed: %v", err)
	}
	if a != b {
		t.Fatalf("expected equal keys, got %q and %q", a, b)
	}
	if a != "watch:/watch/input" {
		t.Fatalf("unexpected watch key %q", a)
	}
}

func TestWatchSingletonIgnoresNameAndOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, err := store.Enqueue(ctx, queue.WatchArgs{Name: "cam-a", Path: "/watch/cam", OutputDir: "/out"}, queue.WithSingleton())
	if err != nil {
		t.Fatalf("first Enqueue failed: %v", err)
	}
	_, err = store.Enqueue(ctx, queue.WatchArgs{Name: "cam-renamed", Path: "/watch/cam/", OutputDir: "/out2"}, queue.WithSingleton())
	if !errors.Is(err, queue.ErrDuplicateJob) {
		t.Fatalf("expected duplicate monitor on the same path, got %v", err)
	}
	var dup *queue.DuplicateJobError
	if !errors.As(err, &dup) || dup.ExistingID != first.ID {
		t.Fatalf("expected existing id %s, got %v", first.ID, err)
	}

	if _, err := store.Enqueue(ctx, queue.WatchArgs{Name: "cam-b", Path: "/watch/cam-b", OutputDir: "/out"}, queue.WithSingleton()); err != nil {
		t.Fatalf("distinct path rejected: %v", err)
	}
}
