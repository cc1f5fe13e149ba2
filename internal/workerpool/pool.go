// Package workerpool runs background jobs on a bounded set of goroutines.
package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrPoolFull is returned when the queue has no room.
	ErrPoolFull = errors.New("worker pool queue is full")
	// ErrPoolClosed is returned after Shutdown.
	ErrPoolClosed = errors.New("worker pool is closed")
)

// Config sizes the pool.
type Config struct {
	Workers     int           `yaml:"workers"`
	QueueSize   int           `yaml:"queue_size"`
	TaskTimeout time.Duration `yaml:"task_timeout"`
}

// DefaultConfig returns the sizing used when nothing is configured.
func DefaultConfig() Config {
	return Config{Workers: 8, QueueSize: 256, TaskTimeout: 10 * time.Second}
}

// Submitter accepts background jobs.
type Submitter interface {
	Submit(name string, fn func(ctx context.Context) error) error
}

type task struct {
	name string
	fn   func(context.Context) error
}

// Pool is a fixed set of workers draining a bounded queue.
// Jobs run detached from the submitting request, under the pool's own
// context and a per-task timeout.
type Pool struct {
	cfg Config
	log *zap.Logger

	tasks chan task
	wg    sync.WaitGroup

	active atomic.Int64
	failed atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

var _ Submitter = (*Pool)(nil)

// New starts the workers.
func New(cfg Config, log *zap.Logger) *Pool {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = def.TaskTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:    cfg,
		log:    log,
		tasks:  make(chan task, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	log.Info("worker pool started", zap.Int("workers", cfg.Workers), zap.Int("queue", cfg.QueueSize))
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.run(t)
	}
}

func (p *Pool) run(t task) {
	p.active.Add(1)
	defer p.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			p.log.Error("background task panic", zap.String("task", t.name), zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.TaskTimeout)
	defer cancel()
	if err := t.fn(ctx); err != nil {
		p.failed.Add(1)
		p.log.Warn("background task failed", zap.String("task", t.name), zap.Error(err))
	}
}

// Submit queues fn without waiting. It never blocks.
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task{name: name, fn: fn}:
		return nil
	default:
		return ErrPoolFull
	}
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Workers int
	Active  int64
	Queued  int
	Failed  int64
	Closed  bool
}

// Stats reports current load.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	return Stats{
		Workers: p.cfg.Workers,
		Active:  p.active.Load(),
		Queued:  len(p.tasks),
		Failed:  p.failed.Load(),
		Closed:  closed,
	}
}

// Shutdown stops intake and drains the queue. If ctx expires first, running
// tasks are canceled and ctx.Err() is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.log.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.cancel()
		p.log.Warn("worker pool shutdown timed out", zap.Int("queued", len(p.tasks)))
		return ctx.Err()
	}
}
