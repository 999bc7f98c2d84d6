package testsupport

import (
	"context"
	"testing"

	"hackyplayer/internal/config"
	"hackyplayer/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustEnqueue enqueues args and fails the test on error.
func MustEnqueue(t testing.TB, store *queue.Store, args queue.Args, opts ...queue.EnqueueOption) *queue.Job {
	t.Helper()

	job, err := store.Enqueue(context.Background(), args, opts...)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}

// SampleBuild returns valid build arguments for a talk at video.
func SampleBuild(video string) queue.BuildArgs {
	return queue.BuildArgs{
		Video: video,
		Talk: queue.TalkMetadata{
			Title:     "Hacking the Mainframe",
			Presenter: "Ada Lovelace",
		},
		StartTC: "00:00:05:00",
		EndTC:   "00:00:15:00",
	}
}
