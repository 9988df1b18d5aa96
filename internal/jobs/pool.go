package jobs

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"storepulse/config"
)

// Pool runs report jobs on a fixed number of in-process workers.
type Pool struct {
	workers int
	jobs    chan string
	handler Handler
	drain   Handler
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a pool whose queue holds cfg.Size pending jobs.
func NewPool(cfg config.QueueConfig, handler Handler, logger *zap.Logger) *Pool {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	size := cfg.Size
	if size < 1 {
		size = 1
	}
	return &Pool{
		workers: workers,
		jobs:    make(chan string, size),
		handler: handler,
		logger:  logger,
	}
}

// OnDrain sets the handler given every job still queued when the pool stops.
// Without one, queued jobs are run before the workers exit.
func (p *Pool) OnDrain(h Handler) { p.drain = h }

// Start launches the worker goroutines. They stop taking jobs when ctx is
// done; a job already running is finished first and queued jobs are drained.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.With(zap.Int("worker", id))
	log.Debug("report worker started")
	for {
		select {
		case reportID := <-p.jobs:
			p.run(ctx, log, p.handler, reportID)
		case <-ctx.Done():
			p.stop()
			p.drainQueue(ctx, log)
			log.Debug("report worker shutting down")
			return
		}
	}
}

func (p *Pool) stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

// drainQueue empties the queue. Submit rejects new jobs once stopped is set,
// so nothing arrives after the channel reads empty.
func (p *Pool) drainQueue(ctx context.Context, log *zap.Logger) {
	h := p.drain
	if h == nil {
		h = p.handler
	}
	for {
		select {
		case reportID := <-p.jobs:
			p.run(ctx, log, h, reportID)
		default:
			return
		}
	}
}

func (p *Pool) run(ctx context.Context, log *zap.Logger, h Handler, reportID string) {
	if err := h(context.WithoutCancel(ctx), reportID); err != nil {
		log.Warn("report job returned error", zap.String("report_id", reportID), zap.Error(err))
	}
}

// Submit queues a job without blocking.
func (p *Pool) Submit(_ context.Context, reportID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.jobs <- reportID:
		return nil
	default:
		return ErrQueueFull
	}
}
