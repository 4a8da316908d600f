package runtime

import (
	"log/slog"

	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/aretw0/flowfsm/pkg/handlers"
	"github.com/aretw0/flowfsm/pkg/ports"
)

// DefaultCASRetries is the number of times a lost state change is retried
// against the freshly read state.
const DefaultCASRetries = 1

// Option configures an Engine.
type Option func(*Engine)

// WithExecutor sets the executor. Without one, a single-worker serial executor
// is created on first start.
func WithExecutor(x ports.Executor) Option {
	return func(e *Engine) {
		e.executor = x
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTrace logs every step at Info instead of Debug.
func WithTrace(enabled bool) Option {
	return func(e *Engine) {
		e.trace = enabled
	}
}

// WithCASRetries bounds the retries of a lost state change. Zero drops immediately.
func WithCASRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.retries = n
		}
	}
}

// WithHandlers uses r instead of a fresh registry.
func WithHandlers(r *handlers.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.handlers = r
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}
