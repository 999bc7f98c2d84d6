package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hackyplayer/internal/logging"
	"hackyplayer/internal/queue"
	"hackyplayer/internal/services"
)

var errRevoked = errors.New("revoked by user")

func (p *Pool) runWorker(ctx context.Context, workerID string) {
	defer p.wg.Done()
	logger := p.logger.With(logging.String(logging.FieldWorker, workerID))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.store.Claim(ctx, workerID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.setLastError(err)
			logger.Error("failed to claim next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_claim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			if !sleep(ctx, p.retryInterval) {
				return
			}
			continue
		}
		if job == nil {
			if !sleep(ctx, p.pollInterval) {
				return
			}
			continue
		}

		p.processJob(ctx, workerID, job)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (p *Pool) processJob(ctx context.Context, workerID string, job *queue.Job) {
	p.markBusy(job)
	defer p.markIdle(job.ID)

	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithJobKind(jobCtx, string(job.Kind))
	jobCtx = services.WithWorker(jobCtx, workerID)
	logger := logging.WithContext(jobCtx, p.logger)

	task := newTask(jobCtx, p.store, job, logger, p.progressInterval)

	runCtx, cancel := context.WithCancelCause(jobCtx)
	defer cancel(nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go p.heartbeatLoop(runCtx, &wg, logger, job.ID)
	go p.cancelWatcher(runCtx, &wg, logger, job.ID, cancel)

	logger.Info("job started",
		logging.String("label", jobLabel(job)),
		logging.String(logging.FieldEventType, "job_started"),
	)
	started := time.Now()
	result, runErr := p.invoke(runCtx, task, job)
	revoked := runErr != nil && errors.Is(context.Cause(runCtx), errRevoked)
	cancel(nil)
	wg.Wait()

	switch {
	case revoked:
		p.finishRevoked(ctx, logger, job)
	case ctx.Err() != nil:
		logger.Info("job interrupted by shutdown; it will be requeued on restart",
			logging.String(logging.FieldEventType, "job_interrupted"),
		)
	case runErr != nil:
		p.finishFailed(ctx, logger, job, runErr)
	default:
		p.finishSucceeded(ctx, logger, job, result, time.Since(started))
	}
}

func (p *Pool) invoke(ctx context.Context, task *Task, job *queue.Job) (result string, err error) {
	handler, ok := p.handler(job.Kind)
	if !ok {
		return "", services.Wrap(services.ErrConfiguration, "workflow", "dispatch", "no handler registered for "+string(job.Kind), nil)
	}
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrTransient, "workflow", string(job.Kind), "handler panicked", fmt.Errorf("panic: %v", r))
		}
	}()
	return handler(ctx, task, job)
}

func (p *Pool) finishSucceeded(ctx context.Context, logger *slog.Logger, job *queue.Job, result string, elapsed time.Duration) {
	if err := p.store.Complete(ctx, job.ID, result); err != nil {
		p.logPersistFailure(logger, "completion", err)
		return
	}
	logger.Info("job succeeded",
		logging.String("result", result),
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldEventType, "job_succeeded"),
	)
	p.notifySucceeded(ctx, logger, job, result)
}

func (p *Pool) finishFailed(ctx context.Context, logger *slog.Logger, job *queue.Job, runErr error) {
	details := services.Details(runErr)
	p.setLastError(runErr)
	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.String("error_kind", details.Kind),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.Error(runErr),
	)
	if err := p.store.Fail(ctx, job.ID, details.Message); err != nil {
		p.logPersistFailure(logger, "failure", err)
		return
	}
	p.notifyFailed(ctx, logger, job, runErr)
}

func (p *Pool) finishRevoked(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	if err := p.store.MarkRevoked(ctx, job.ID, queue.RevokedByUser); err != nil {
		p.logPersistFailure(logger, "revocation", err)
		return
	}
	logger.Info("job revoked", logging.String(logging.FieldEventType, "job_revoked"))
}

func (p *Pool) logPersistFailure(logger *slog.Logger, what string, err error) {
	if errors.Is(err, context.Canceled) {
		logger.Debug("daemon shutting down, could not persist job " + what)
		return
	}
	p.setLastError(err)
	logger.Error("failed to persist job "+what,
		logging.Error(err),
		logging.String(logging.FieldEventType, "job_persist_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
}

func jobLabel(job *queue.Job) string {
	switch args := job.Args.(type) {
	case queue.BuildArgs:
		return args.Talk.Title
	case queue.IngestArgs:
		return args.Input
	case queue.WatchArgs:
		return args.Name
	default:
		return job.ID
	}
}
