package executor

import (
	"log/slog"
	"sync"
)

// Inline runs tasks on the goroutine that submits them.
type Inline struct {
	mu      sync.Mutex
	queue   []func()
	running bool
	logger  *slog.Logger
}

// NewInline creates a synchronous executor.
func NewInline(opts ...Option) *Inline {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Inline{logger: o.logger}
}

// Submit runs task now, unless a task is already running; then it is queued
// and run by the outermost Submit before it returns.
func (e *Inline) Submit(task func()) {
	e.mu.Lock()
	e.queue = append(e.queue, task)
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true

	for len(e.queue) > 0 {
		next := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()

		run(e.logger, next)

		e.mu.Lock()
	}
	e.running = false
	e.mu.Unlock()
}
