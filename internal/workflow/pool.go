package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hackyplayer/internal/config"
	"hackyplayer/internal/logging"
	"hackyplayer/internal/notifications"
	"hackyplayer/internal/queue"
)

// Handler executes one job and returns its result (usually an output path).
type Handler func(ctx context.Context, task *Task, job *queue.Job) (string, error)

// Pool coordinates queue processing across a fixed number of workers.
type Pool struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	session  string

	workers          int
	pollInterval     time.Duration
	retryInterval    time.Duration
	heartbeat        time.Duration
	cancelPoll       time.Duration
	progressInterval time.Duration

	handlers map[queue.Kind]Handler

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	busy    map[string]*queue.Job
	lastErr error
}

// Option configures optional Pool behavior.
type Option func(*Pool)

// WithNotifier overrides the notification service built from config.
func WithNotifier(n notifications.Service) Option {
	return func(p *Pool) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithIntervals overrides the claim poll, cancel poll and heartbeat intervals.
// Zero values keep the configured interval.
func WithIntervals(poll, cancelPoll, heartbeat time.Duration) Option {
	return func(p *Pool) {
		if poll > 0 {
			p.pollInterval = poll
			p.retryInterval = poll
		}
		if cancelPoll > 0 {
			p.cancelPoll = cancelPoll
		}
		if heartbeat > 0 {
			p.heartbeat = heartbeat
		}
	}
}

// WithProgressInterval sets the minimum gap between persisted progress updates.
func WithProgressInterval(d time.Duration) Option {
	return func(p *Pool) { p.progressInterval = d }
}

// NewPool constructs a worker pool over store.
func NewPool(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pool{
		cfg:              cfg,
		store:            store,
		logger:           logging.NewComponentLogger(logger, "workflow"),
		notifier:         notifications.NewService(cfg),
		session:          uuid.NewString()[:8],
		workers:          max(cfg.Workflow.WorkerCount, 1),
		pollInterval:     seconds(cfg.Workflow.QueuePollInterval, 2),
		retryInterval:    seconds(cfg.Workflow.ErrorRetryInterval, 10),
		heartbeat:        seconds(cfg.Workflow.HeartbeatInterval, 15),
		cancelPoll:       seconds(cfg.Workflow.CancelPollInterval, 1),
		progressInterval: 2 * time.Second,
		handlers:         make(map[queue.Kind]Handler),
		busy:             make(map[string]*queue.Job),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func seconds(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

// Register installs the handler for a job kind. Registration must happen
// before Start.
func (p *Pool) Register(kind queue.Kind, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = handler
}

// Start recovers jobs orphaned by a previous daemon and launches the workers.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("worker pool already running")
	}
	if len(p.handlers) == 0 {
		p.mu.Unlock()
		return errors.New("no job handlers registered")
	}
	p.mu.Unlock()

	reset, err := p.store.ResetRunning(ctx)
	if err != nil {
		return fmt.Errorf("reset running jobs: %w", err)
	}
	if reset > 0 {
		p.logger.Info("requeued jobs left running by a previous daemon",
			logging.Int64("count", reset),
			logging.String(logging.FieldEventType, "queue_recovered"),
		)
	}

	p.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(p.workers)
	p.mu.Unlock()

	for i := range p.workers {
		go p.runWorker(runCtx, fmt.Sprintf("%s-%d", p.session, i+1))
	}
	p.logger.Info("worker pool started",
		logging.Int("workers", p.workers),
		logging.String(logging.FieldEventType, "pool_started"),
	)
	return nil
}

// Stop cancels running jobs and waits for every worker to exit. Jobs
// interrupted this way stay running in the store and are requeued on the
// next Start.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

func (p *Pool) handler(kind queue.Kind) (Handler, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.handlers[kind]
	return h, ok
}
