package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hackyplayer/internal/config"
	"hackyplayer/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = append(captured, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyBuildCompleted(context.Background(), "Talk", "/out/talk.mp4"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	srv, captured := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	if err := svc.NotifyBuildCompleted(ctx, "Hacking the Mainframe", "/out/hacking-20240101-120000.mp4"); err != nil {
		t.Fatalf("NotifyBuildCompleted: %v", err)
	}
	if err := svc.NotifyJobFailed(ctx, "ingest", "clip.mov", errors.New("ffmpeg exited with status 1")); err != nil {
		t.Fatalf("NotifyJobFailed: %v", err)
	}

	if len(*captured) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(*captured))
	}
	build := (*captured)[0]
	if build.title != "hackyplayer - Build Complete" || build.tags != "hackyplayer,build,completed" {
		t.Fatalf("unexpected build headers: %+v", build)
	}
	if !strings.Contains(build.body, "Hacking the Mainframe") || !strings.Contains(build.body, "hacking-20240101-120000.mp4") {
		t.Fatalf("unexpected build body: %q", build.body)
	}
	failure := (*captured)[1]
	if failure.priority != "high" || !strings.Contains(failure.body, "ingest failed for clip.mov: ffmpeg exited with status 1") {
		t.Fatalf("unexpected failure payload: %+v", failure)
	}
}

func TestNtfyServiceHonoursEventToggles(t *testing.T) {
	srv, captured := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.Ingests = false

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyIngestCompleted(context.Background(), "/in/a.mov", "/out/a.mp4"); err != nil {
		t.Fatalf("NotifyIngestCompleted: %v", err)
	}
	if len(*captured) != 0 {
		t.Fatalf("expected muted ingest notification, got %d requests", len(*captured))
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
