package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"hackyplayer/internal/logging"
)

func (p *Pool) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger, jobID string) {
	defer wg.Done()
	ticker := time.NewTicker(p.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.store.Heartbeat(ctx, jobID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("heartbeat update failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_failed"),
					logging.String(logging.FieldErrorHint, "check queue database access"),
				)
			}
		}
	}
}

// cancelWatcher cancels the job context once a revoke has been requested.
func (p *Pool) cancelWatcher(ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger, jobID string, cancel context.CancelCauseFunc) {
	defer wg.Done()
	ticker := time.NewTicker(p.cancelPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requested, err := p.store.CancelRequested(ctx, jobID)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Debug("cancel poll failed", logging.Error(err))
				continue
			}
			if requested {
				logger.Info("cancel requested; stopping job",
					logging.String(logging.FieldEventType, "job_cancel_requested"),
				)
				cancel(errRevoked)
				return
			}
		}
	}
}
