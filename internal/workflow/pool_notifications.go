package workflow

import (
	"context"
	"errors"
	"log/slog"

	"hackyplayer/internal/logging"
	"hackyplayer/internal/queue"
)

func (p *Pool) notifySucceeded(ctx context.Context, logger *slog.Logger, job *queue.Job, result string) {
	var err error
	switch args := job.Args.(type) {
	case queue.BuildArgs:
		err = p.notifier.NotifyBuildCompleted(ctx, args.Talk.Title, result)
	case queue.IngestArgs:
		err = p.notifier.NotifyIngestCompleted(ctx, args.Input, result)
	default:
		return
	}
	p.logNotifyFailure(logger, err)
}

func (p *Pool) notifyFailed(ctx context.Context, logger *slog.Logger, job *queue.Job, runErr error) {
	p.logNotifyFailure(logger, p.notifier.NotifyJobFailed(ctx, string(job.Kind), jobLabel(job), runErr))
}

func (p *Pool) logNotifyFailure(logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		logger.Debug("daemon shutting down, could not send notification")
		return
	}
	logger.Debug("notification failed", logging.Error(err))
}
