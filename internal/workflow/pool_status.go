package workflow

import (
	"context"
	"sort"

	"hackyplayer/internal/logging"
	"hackyplayer/internal/queue"
)

// StatusSummary represents lightweight worker pool diagnostics.
type StatusSummary struct {
	Running    bool
	Workers    int
	Busy       []string
	LastError  string
	QueueStats map[queue.Status]int
}

// Status returns the latest pool information.
func (p *Pool) Status(ctx context.Context) StatusSummary {
	p.mu.RLock()
	summary := StatusSummary{Running: p.running, Workers: p.workers}
	for id := range p.busy {
		summary.Busy = append(summary.Busy, id)
	}
	if p.lastErr != nil {
		summary.LastError = p.lastErr.Error()
	}
	p.mu.RUnlock()
	sort.Strings(summary.Busy)

	stats, err := p.store.Stats(ctx)
	if err != nil {
		p.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats
	return summary
}

func (p *Pool) markBusy(job *queue.Job) {
	p.mu.Lock()
	p.busy[job.ID] = job
	p.mu.Unlock()
}

func (p *Pool) markIdle(id string) {
	p.mu.Lock()
	delete(p.busy, id)
	p.mu.Unlock()
}

func (p *Pool) setLastError(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}
