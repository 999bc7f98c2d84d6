package api_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hackyplayer/internal/api"
	"hackyplayer/internal/config"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/services"
	"hackyplayer/internal/testsupport"
)

type fixture struct {
	cfg   *config.Config
	store *queue.Store
	sup   *api.Supervisor
	video string
}

func newFixture(t *testing.T, catalog *api.Catalog) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	video := filepath.Join(cfg.Paths.SourceDir, "stage-a.mp4")
	testsupport.WriteFile(t, video, 64)
	return fixture{cfg: cfg, store: store, sup: api.NewSupervisor(cfg, store, catalog), video: video}
}

func buildRequest() api.BuildRequest {
	return api.BuildRequest{
		Video:     "stage-a.mp4",
		Title:     "Hacking the Mainframe",
		Presenter: "Ada Lovelace",
		StartTC:   "00:00:05:00",
		EndTC:     "00:00:15:00",
	}
}

func TestEnqueueBuildResolvesSourceAndDirectories(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	id, err := f.sup.EnqueueBuild(ctx, buildRequest())
	if err != nil {
		t.Fatalf("EnqueueBuild: %v", err)
	}
	job, err := f.store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	args, ok := job.Build()
	if !ok {
		t.Fatalf("expected build args, got %T", job.Args)
	}
	if args.Video != f.video {
		t.Fatalf("video = %q, want %q", args.Video, f.video)
	}
	if args.OutputDir != f.cfg.Paths.OutputDir || args.Framerate != f.cfg.Build.Framerate {
		t.Fatalf("unexpected build args %+v", args)
	}
	if args.Talk.Filename != "" {
		t.Fatalf("expected no filename without talk id, got %q", args.Talk.Filename)
	}
}

func TestEnqueueBuildRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cases := map[string]func(*api.BuildRequest){
		"malformed start": func(r *api.BuildRequest) { r.StartTC = "00:00:05" },
		"frame overflow":  func(r *api.BuildRequest) { r.EndTC = "00:00:15:50" },
		"end before start": func(r *api.BuildRequest) {
			r.StartTC, r.EndTC = "00:00:15:00", "00:00:05:00"
		},
		"missing title":  func(r *api.BuildRequest) { r.Title = " " },
		"non-numeric id": func(r *api.BuildRequest) { r.TalkID = "abc" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := buildRequest()
			mutate(&req)
			if _, err := f.sup.EnqueueBuild(ctx, req); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	req := buildRequest()
	req.Video = "missing.mp4"
	if _, err := f.sup.EnqueueBuild(ctx, req); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing source, got %v", err)
	}
}

func TestEnqueueBuildUsesCatalogue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "talks.json")
	data := `[
  {"id": 42, "type": "talk", "title": "Hacking the Mainframe", "speaker": "Ada", "slug": "hacking-the-mainframe", "description": "A deep dive."},
  {"id": 7, "type": "workshop", "title": "Soldering Für Alle", "speaker": "Bo", "slug": "", "description": ""}
]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	catalog, err := api.LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	f := newFixture(t, catalog)
	ctx := context.Background()

	cases := []struct {
		id       string
		filename string
		desc     string
	}{
		{"42", "42_hacking-the-mainframe", "A deep dive."},
		{"7", "7_soldering-fur-alle", ""},
		{"99", "99", ""},
	}
	for _, tc := range cases {
		req := buildRequest()
		req.TalkID = tc.id
		id, err := f.sup.EnqueueBuild(ctx, req)
		if err != nil {
			t.Fatalf("EnqueueBuild(%s): %v", tc.id, err)
		}
		job, _ := f.store.Get(ctx, id)
		args, _ := job.Build()
		if args.Talk.Filename != tc.filename || args.Talk.Description != tc.desc {
			t.Fatalf("talk %s: got filename %q description %q", tc.id, args.Talk.Filename, args.Talk.Description)
		}
	}
}

func TestBuildTasksListsRunningThenScheduled(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.sup.EnqueueBuild(ctx, buildRequest())
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.sup.EnqueueBuild(ctx, buildRequest())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.Claim(ctx, "w1"); err != nil {
		t.Fatal(err)
	}
	if err := f.store.UpdateProgress(ctx, first, "Running main build", 4, 16); err != nil {
		t.Fatal(err)
	}

	views, err := f.sup.BuildTasks(ctx)
	if err != nil {
		t.Fatalf("BuildTasks: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	running, scheduled := views[0], views[1]
	if running.ID != first || running.State != "Running main build" || running.Progress != "25.0%" {
		t.Fatalf("unexpected running view %+v", running)
	}
	if running.TimeStart == nil || len(*running.TimeStart) != len("2006-01-02 15:04:05") {
		t.Fatalf("expected formatted start time, got %v", running.TimeStart)
	}
	if running.Node == "" || running.InTC != "00:00:05:00" || running.OutTC != "00:00:15:00" {
		t.Fatalf("unexpected running view fields %+v", running)
	}
	if scheduled.ID != second || scheduled.TimeStart != nil || scheduled.Progress != "0%" || scheduled.State != "pending" {
		t.Fatalf("unexpected scheduled view %+v", scheduled)
	}
}

func TestIngestTasks(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id, err := f.sup.EnqueueIngest(ctx, api.IngestRequest{Input: f.video})
	if err != nil {
		t.Fatalf("EnqueueIngest: %v", err)
	}
	views, err := f.sup.IngestTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].ID != id || views[0].Input != f.video {
		t.Fatalf("unexpected ingest views %+v", views)
	}
	job, _ := f.store.Get(ctx, id)
	if args, _ := job.Ingest(); args.OutputDir != f.cfg.Paths.SourceDir {
		t.Fatalf("output dir = %q, want source dir", args.OutputDir)
	}
}

func TestWatchStartStop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	views, err := f.sup.WatchFolders(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].Name != "input" || views[0].State != "stopped" || views[0].ID != "" {
		t.Fatalf("unexpected initial views %+v", views)
	}

	id, err := f.sup.StartWatch(ctx, "input")
	if err != nil {
		t.Fatalf("StartWatch: %v", err)
	}
	dupID, err := f.sup.StartWatch(ctx, "input")
	if !errors.Is(err, queue.ErrDuplicateJob) || dupID != id {
		t.Fatalf("expected duplicate of %s, got %q %v", id, dupID, err)
	}

	views, _ = f.sup.WatchFolders(ctx)
	if views[0].ID != id || views[0].State != "pending" {
		t.Fatalf("expected live watch in view, got %+v", views[0])
	}

	stopped, err := f.sup.StopWatch(ctx, "input")
	if err != nil || len(stopped) != 1 || stopped[0] != id {
		t.Fatalf("StopWatch = %v, %v", stopped, err)
	}
	job, _ := f.store.Get(ctx, id)
	if job.Status != queue.StatusRevoked {
		t.Fatalf("watch status = %s, want revoked", job.Status)
	}
	if _, err := f.sup.StartWatch(ctx, "input"); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}

	if _, err := f.sup.StartWatch(ctx, "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown folder, got %v", err)
	}
}

func TestCancelAndDescribe(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id, err := f.sup.EnqueueBuild(ctx, buildRequest())
	if err != nil {
		t.Fatal(err)
	}

	view, err := f.sup.Cancel(ctx, id)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if view.Status != string(queue.StatusRevoked) || view.ErrorMessage != queue.RevokedBeforeStart {
		t.Fatalf("unexpected cancel view %+v", view)
	}
	described, err := f.sup.Describe(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if described.Label != "Hacking the Mainframe" || described.FinishedAt == nil {
		t.Fatalf("unexpected describe view %+v", described)
	}
	if !strings.HasSuffix(described.LogDir, id) {
		t.Fatalf("log dir %q not keyed by job id", described.LogDir)
	}
	if _, err := f.sup.Describe(ctx, "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTailLog(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id, err := f.sup.EnqueueBuild(ctx, buildRequest())
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(f.cfg.Paths.LogDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "one\ntwo\nthree\nfour\n"
	if err := os.WriteFile(filepath.Join(dir, "build.log"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tail, err := f.sup.TailLog(ctx, id, api.LogQuery{Lines: 2, Offset: -1})
	if err != nil {
		t.Fatalf("TailLog: %v", err)
	}
	if strings.Join(tail.Lines, ",") != "three,four" {
		t.Fatalf("unexpected tail %v", tail.Lines)
	}
	if len(tail.Files) != 1 || tail.Files[0] != "build.log" {
		t.Fatalf("unexpected files %v", tail.Files)
	}
	if tail.Offset != int64(len(content)) {
		t.Fatalf("offset = %d, want %d", tail.Offset, len(content))
	}

	if err := appendFile(filepath.Join(dir, "build.log"), "five\n"); err != nil {
		t.Fatal(err)
	}
	next, err := f.sup.TailLog(ctx, id, api.LogQuery{File: "build.log", Offset: tail.Offset})
	if err != nil {
		t.Fatalf("TailLog from offset: %v", err)
	}
	if strings.Join(next.Lines, ",") != "five" {
		t.Fatalf("unexpected lines after offset %v", next.Lines)
	}
}

func appendFile(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
