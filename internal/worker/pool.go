package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrQueueFull  = errors.New("worker queue is full")
	ErrPoolClosed = errors.New("worker pool is closed")
)

type Job func(ctx context.Context)

// Pool runs jobs on a fixed set of goroutines fed by a bounded queue.
type Pool struct {
	ctx    context.Context
	jobs   chan Job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	logger *slog.Logger
}

func NewPool(ctx context.Context, workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		ctx:    context.WithoutCancel(ctx),
		jobs:   make(chan Job, queueSize),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Submit queues job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for the queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) run() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.execute(job)
	}
}

func (p *Pool) execute(job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker job panicked", "panic", r)
		}
	}()
	job(p.ctx)
}
