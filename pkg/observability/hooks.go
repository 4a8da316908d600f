package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/flowfsm/pkg/domain"
)

// LogHooks logs every lifecycle event at Info level (errors at Error).
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnContextStart: func(ctx context.Context, e *domain.StateEvent) {
			logger.InfoContext(ctx, "context_start", "context", e.ContextID, "state", e.State)
		},
		OnStateEnter: func(ctx context.Context, e *domain.StateEvent) {
			logger.InfoContext(ctx, "state_enter", "context", e.ContextID, "state", e.State)
		},
		OnStateLeave: func(ctx context.Context, e *domain.StateEvent) {
			logger.InfoContext(ctx, "state_leave", "context", e.ContextID, "state", e.State)
		},
		OnEventTrigger: func(ctx context.Context, e *domain.TriggerEvent) {
			logger.InfoContext(ctx, "event_triggered", "context", e.ContextID, "event", e.Event, "from", e.From, "to", e.To)
		},
		OnContextEnd: func(ctx context.Context, e *domain.StateEvent) {
			logger.InfoContext(ctx, "context_terminated", "context", e.ContextID, "state", e.State)
		},
		OnError: func(ctx context.Context, e *domain.ErrorEvent) {
			logger.ErrorContext(ctx, "execution_error", "context", e.ContextID, "state", e.State, "phase", e.Phase, "err", e.Error)
		},
	}
}

// Combine calls every non-nil hook of each set, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, s := range sets {
		out.OnContextStart = chainState(out.OnContextStart, s.OnContextStart)
		out.OnStateEnter = chainState(out.OnStateEnter, s.OnStateEnter)
		out.OnStateLeave = chainState(out.OnStateLeave, s.OnStateLeave)
		out.OnContextEnd = chainState(out.OnContextEnd, s.OnContextEnd)
		out.OnEventTrigger = chainTrigger(out.OnEventTrigger, s.OnEventTrigger)
		out.OnError = chainError(out.OnError, s.OnError)
	}
	return out
}

func chainState(a, b func(context.Context, *domain.StateEvent)) func(context.Context, *domain.StateEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.StateEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainTrigger(a, b func(context.Context, *domain.TriggerEvent)) func(context.Context, *domain.TriggerEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.TriggerEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainError(a, b func(context.Context, *domain.ErrorEvent)) func(context.Context, *domain.ErrorEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.ErrorEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
