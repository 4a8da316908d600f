package executor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Pool runs submitted tasks on a fixed set of worker goroutines.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	wg     sync.WaitGroup
	closed atomic.Bool
	size   int
	logger *slog.Logger
}

// NewPool starts workers goroutines. Values below one are treated as one.
func NewPool(workers int, opts ...Option) *Pool {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if workers < 1 {
		workers = 1
	}

	p := &Pool{size: workers, logger: o.logger}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

// NewSerial starts a single-worker pool. Tasks run one at a time in FIFO order.
func NewSerial(opts ...Option) *Pool {
	return NewPool(1, opts...)
}

// Submit enqueues task. Tasks submitted after Close are dropped.
func (p *Pool) Submit(task func()) {
	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		p.logger.Warn("task dropped: executor closed")
		return
	}
	p.queue = append(p.queue, task)
	p.mu.Unlock()
	p.cond.Signal()
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Pending returns the number of queued tasks not yet picked by a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close stops accepting tasks and waits for the queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed.Store(true)
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

// Shutdown is Close bounded by ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed.Load() {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		run(p.logger, task)
	}
}
