package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/aretw0/flowfsm/pkg/executor"
	"github.com/aretw0/flowfsm/pkg/graph"
	"github.com/aretw0/flowfsm/pkg/handlers"
	"github.com/aretw0/flowfsm/pkg/ports"
)

// Engine is the execution engine of one flow. It is shared by any number of contexts.
type Engine struct {
	start      domain.State
	collection *graph.Collection
	handlers   *handlers.Registry
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	trace      bool
	retries    int

	mu       sync.Mutex
	executor ports.Executor
	// owned is the executor the engine created itself; Close releases it.
	owned    *executor.Pool
	started  atomic.Bool
}

var _ domain.Driver = (*Engine)(nil)

// NewEngine creates an engine entering contexts at start.
func NewEngine(start domain.State, collection *graph.Collection, opts ...Option) *Engine {
	e := &Engine{
		start:      start,
		collection: collection,
		handlers:   handlers.NewRegistry(),
		logger:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
		retries:    DefaultCASRetries,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) StartState() domain.State {
	return e.start
}

func (e *Engine) Collection() *graph.Collection {
	return e.collection
}

func (e *Engine) Handlers() *handlers.Registry {
	return e.handlers
}

// SetExecutor replaces the executor. It fails once any context has been started.
func (e *Engine) SetExecutor(x ports.Executor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started.Load() {
		return domain.ErrExecutorLocked
	}
	e.executor = x
	return nil
}

// Executor returns the configured executor, or nil before the first start without one.
func (e *Engine) Executor() ports.Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executor
}

// lock fixes the executor, defaulting it to a serial one.
func (e *Engine) lock() {
	if e.started.Load() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.executor == nil {
		e.owned = executor.NewSerial(executor.WithLogger(e.logger))
		e.executor = e.owned
	}
	e.started.Store(true)
}

// Close stops the default executor once its queued steps have run. An executor
// supplied by the caller is left alone. Close must not be called from a handler.
func (e *Engine) Close() {
	e.mu.Lock()
	owned := e.owned
	e.owned = nil
	e.mu.Unlock()
	if owned != nil {
		owned.Close()
	}
}

// Start binds c to the engine. A fresh context is moved to the start state and
// entered. A context already carrying a state keeps it; it is entered again only
// when enterInitial is set.
func (e *Engine) Start(c *domain.Context, enterInitial bool) error {
	if c.IsTerminated() {
		return domain.ErrTerminated
	}
	e.lock()
	bound := c.Driver() == domain.Driver(e)
	c.Attach(e)

	if c.CompareAndSwapState(domain.NoState, e.start) {
		e.logStep("context started", c, "state", e.start)
		e.began(e.start, c)
		e.execute(c, func() { e.enter(e.start, "", c) })
		return nil
	}

	state := c.State()
	e.logStep("context resumed", c, "state", state)
	if !bound {
		e.began(state, c)
	}
	if enterInitial {
		e.execute(c, func() { e.enter(state, "", c) })
	}
	return nil
}

// Trigger fires event on c. A missing edge is reported as a *domain.LogicViolationError.
// It returns false without error once c is terminated.
func (e *Engine) Trigger(event domain.Event, c *domain.Context) (bool, error) {
	return e.trigger(event, c, domain.NoState, false, false)
}

// SafeTrigger is Trigger reporting false instead of any error.
func (e *Engine) SafeTrigger(event domain.Event, c *domain.Context) bool {
	ok, _ := e.trigger(event, c, domain.NoState, false, true)
	return ok
}

// ConditionTrigger fires event only while c is in expected; otherwise it returns
// false without invoking any handler. A lost state change is never retried.
// The check and the change are not atomic: callers needing ordering across
// concurrent triggers should use this instead of Trigger.
func (e *Engine) ConditionTrigger(event domain.Event, c *domain.Context, expected domain.State) (bool, error) {
	return e.trigger(event, c, expected, true, false)
}

// AvailableTransitions lists the edges leaving state.
func (e *Engine) AvailableTransitions(state domain.State) []domain.Transition {
	return e.collection.From(state)
}

func (e *Engine) trigger(event domain.Event, c *domain.Context, expected domain.State, conditional, safe bool) (bool, error) {
	if c.IsTerminated() {
		return false, nil
	}
	if !c.IsStarted() {
		if safe {
			return false, nil
		}
		return false, domain.ErrNotStarted
	}

	from := c.State()
	if conditional && from != expected {
		return false, nil
	}

	t, ok := e.collection.Transition(from, event)
	if !ok {
		if safe {
			return false, nil
		}
		return false, &domain.LogicViolationError{Event: event, State: from, ContextID: c.ID()}
	}

	retries := e.retries
	if conditional {
		retries = 0
	}

	e.lock()
	e.execute(c, func() { e.fire(t, c, retries) })
	return true, nil
}

// fire runs the event handler and schedules the state change.
func (e *Engine) fire(t domain.Transition, c *domain.Context, retries int) {
	e.logStep("event triggered", c, "event", t.Event, "from", t.From, "to", t.To)
	err := safeCall(func() error { return e.handlers.Triggered(t.Event, t.From, t.To, c) })
	if err != nil {
		e.fail(c, domain.PhaseTrigger, t.From, t.Event, err)
		return
	}
	if h := e.hooks.OnEventTrigger; h != nil {
		h(c.Base(), &domain.TriggerEvent{
			EventBase: domain.NewEventBase(domain.EventTriggered, c),
			Event:     t.Event,
			From:      t.From,
			To:        t.To,
		})
	}
	e.execute(c, func() { e.change(t, c, retries) })
}

// change moves c along t. Only the CAS winner runs leave and enter; a loser
// retries against the current state while it accepts the same event.
func (e *Engine) change(t domain.Transition, c *domain.Context, retries int) {
	for !c.CompareAndSwapState(t.From, t.To) {
		current := c.State()
		next, ok := e.collection.Transition(current, t.Event)
		if retries <= 0 || !ok {
			e.logStep("state change dropped", c, "event", t.Event, "expected", t.From, "current", current)
			return
		}
		retries--
		e.logStep("state change retried", c, "event", t.Event, "expected", t.From, "current", current)
		t = next
		if c.IsTerminated() {
			return
		}
	}

	if !e.leave(t.From, t.Event, c) {
		return
	}
	e.enter(t.To, t.Event, c)
}

// enter runs the entry handlers of state and terminates c if state is final.
func (e *Engine) enter(state domain.State, event domain.Event, c *domain.Context) {
	if c.IsTerminated() {
		return
	}
	e.logStep("entering state", c, "state", state)

	if err := safeCall(func() error { return e.handlers.Entered(state, c) }); err != nil {
		e.fail(c, domain.PhaseEnter, state, event, err)
		return
	}
	if h := e.hooks.OnStateEnter; h != nil {
		h(c.Base(), &domain.StateEvent{EventBase: domain.NewEventBase(domain.EventStateEnter, c), State: state})
	}

	if e.collection.IsFinal(state) {
		e.terminate(state, c)
	}
}

// leave runs the exit handlers of state. It reports false if c must not proceed.
func (e *Engine) leave(state domain.State, event domain.Event, c *domain.Context) bool {
	if c.IsTerminated() {
		return false
	}
	e.logStep("leaving state", c, "state", state)

	if err := safeCall(func() error { return e.handlers.Left(state, c) }); err != nil {
		e.fail(c, domain.PhaseLeave, state, event, err)
		return false
	}
	if h := e.hooks.OnStateLeave; h != nil {
		h(c.Base(), &domain.StateEvent{EventBase: domain.NewEventBase(domain.EventStateLeave, c), State: state})
	}
	return true
}

// terminate ends c in a final state. Only the first caller runs the final handler.
func (e *Engine) terminate(state domain.State, c *domain.Context) {
	if !c.Terminate() {
		return
	}
	e.logStep("context terminated", c, "state", state)
	e.ended(state, c)

	if err := safeCall(func() error { return e.handlers.Finished(state, c) }); err != nil {
		e.logger.Error("final state handler failed", "err", err, "state", state, "context", c.ID())
	}
}

// fail routes a handler failure to the error handler and terminates c in state.
func (e *Engine) fail(c *domain.Context, phase domain.Phase, state domain.State, event domain.Event, cause error) {
	execErr := &domain.ExecutionError{Phase: phase, State: state, Event: event, Context: c, Err: cause}

	handled := false
	if err := safeCall(func() error {
		handled = e.handlers.Failed(execErr)
		return nil
	}); err != nil {
		e.logger.Error("error handler failed", "err", err, "context", c.ID())
	}
	if !handled {
		e.logger.Error("execution error", "err", execErr, "state", state, "event", event, "context", c.ID())
	}

	if h := e.hooks.OnError; h != nil {
		h(c.Base(), &domain.ErrorEvent{
			EventBase: domain.NewEventBase(domain.EventExecutionError, c),
			State:     state,
			Event:     event,
			Phase:     phase,
			Error:     cause.Error(),
		})
	}

	e.terminate(state, c)
}

// Stopped emits the end of a context aborted with Stop. No final handler runs.
func (e *Engine) Stopped(c *domain.Context) {
	state := c.State()
	e.logStep("context stopped", c, "state", state)
	e.ended(state, c)
}

func (e *Engine) began(state domain.State, c *domain.Context) {
	if h := e.hooks.OnContextStart; h != nil {
		h(c.Base(), &domain.StateEvent{EventBase: domain.NewEventBase(domain.EventContextStart, c), State: state})
	}
}

func (e *Engine) ended(state domain.State, c *domain.Context) {
	if h := e.hooks.OnContextEnd; h != nil {
		h(c.Base(), &domain.StateEvent{EventBase: domain.NewEventBase(domain.EventContextEnd, c), State: state})
	}
}

// execute schedules task for c. Tasks scheduled for a terminated context are no-ops.
func (e *Engine) execute(c *domain.Context, task func()) {
	if c.IsTerminated() {
		return
	}
	e.executor.Submit(c.Wrap(func() {
		if c.IsTerminated() {
			return
		}
		task()
	}))
}

func (e *Engine) logStep(msg string, c *domain.Context, args ...any) {
	level := slog.LevelDebug
	if e.trace {
		level = slog.LevelInfo
	}
	e.logger.Log(context.Background(), level, msg, append([]any{"context", c.ID()}, args...)...)
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrHandlerPanic, r)
		}
	}()
	return fn()
}
