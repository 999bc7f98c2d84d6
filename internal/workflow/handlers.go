package workflow

import (
	"context"

	"hackyplayer/internal/build"
	"hackyplayer/internal/ingest"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/services"
	"hackyplayer/internal/watchfolder"
)

// BuildHandler runs build jobs through pipeline.
func BuildHandler(pipeline *build.Pipeline) Handler {
	return func(ctx context.Context, task *Task, job *queue.Job) (string, error) {
		args, ok := job.Build()
		if !ok {
			return "", argsMismatch(job)
		}
		return pipeline.Run(ctx, task, args)
	}
}

// IngestHandler runs ingest jobs through pipeline.
func IngestHandler(pipeline *ingest.Pipeline) Handler {
	return func(ctx context.Context, task *Task, job *queue.Job) (string, error) {
		args, ok := job.Ingest()
		if !ok {
			return "", argsMismatch(job)
		}
		return pipeline.Run(ctx, task, args)
	}
}

// WatchHandler runs a watch-folder monitor for the lifetime of the job.
// Stable files are queued as ingest jobs through enqueuer.
func WatchHandler(enqueuer watchfolder.Enqueuer) Handler {
	return func(ctx context.Context, task *Task, job *queue.Job) (string, error) {
		args, ok := job.Watch()
		if !ok {
			return "", argsMismatch(job)
		}
		monitor := watchfolder.New(args.Path, args.OutputDir, enqueuer)
		return "", monitor.Run(ctx, task)
	}
}

func argsMismatch(job *queue.Job) error {
	return services.Wrap(services.ErrValidation, "workflow", string(job.Kind), "job arguments do not match kind", nil)
}
