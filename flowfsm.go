package flowfsm

import (
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/flowfsm/internal/runtime"
	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/aretw0/flowfsm/pkg/dsl"
	"github.com/aretw0/flowfsm/pkg/graph"
	"github.com/aretw0/flowfsm/pkg/handlers"
	"github.com/aretw0/flowfsm/pkg/ports"
)

// Flow is the high-level entry point of the library: an assembled graph with its
// handlers and executor.
type Flow struct {
	engine         *runtime.Engine
	handlers       *handlers.Registry
	runtimeOpts    []runtime.Option
	skipValidation bool
	logger         *slog.Logger
}

// Option defines a functional option for configuring the Flow.
type Option func(*Flow)

// WithExecutor sets the executor used for every step. Default: a single-worker serial executor.
func WithExecutor(x ports.Executor) Option {
	return func(f *Flow) {
		f.runtimeOpts = append(f.runtimeOpts, runtime.WithExecutor(x))
	}
}

// WithLogger sets a custom structured logger for the flow.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

// WithTrace logs every enter, leave and trigger at Info level.
func WithTrace() Option {
	return func(f *Flow) {
		f.runtimeOpts = append(f.runtimeOpts, runtime.WithTrace(true))
	}
}

// WithCASRetries bounds how often a state change lost to a concurrent trigger is
// retried against the current state. Default: runtime.DefaultCASRetries.
func WithCASRetries(n int) Option {
	return func(f *Flow) {
		f.runtimeOpts = append(f.runtimeOpts, runtime.WithCASRetries(n))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(f *Flow) {
		f.runtimeOpts = append(f.runtimeOpts, runtime.WithLifecycleHooks(hooks))
	}
}

// WithSkipValidation disables the graph well-formedness checks. Intended for tests.
func WithSkipValidation() Option {
	return func(f *Flow) {
		f.skipValidation = true
	}
}

func newFlow(opts []Option) *Flow {
	f := &Flow{handlers: handlers.NewRegistry()}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return f
}

func (f *Flow) init(start domain.State, c *graph.Collection) *Flow {
	opts := append([]runtime.Option{
		runtime.WithLogger(f.logger),
		runtime.WithHandlers(f.handlers),
	}, f.runtimeOpts...)
	f.engine = runtime.NewEngine(start, c, opts...)
	return f
}

// New assembles and validates def.
func New(def *dsl.Definition, opts ...Option) (*Flow, error) {
	f := newFlow(opts)
	c, err := def.Build(f.skipValidation)
	if err != nil {
		return nil, err
	}
	return f.init(def.Start(), c), nil
}

// FromTransitions builds a flow from an explicit, already resolved edge list.
func FromTransitions(start domain.State, ts []domain.Transition, opts ...Option) (*Flow, error) {
	f := newFlow(opts)
	c, err := graph.New(ts, !f.skipValidation)
	if err != nil {
		return nil, err
	}
	return f.init(start, c), nil
}

// WhenEnter registers h for entry into state. Handlers must be registered
// before the first context is started.
func (f *Flow) WhenEnter(state domain.State, h handlers.StateHandler) *Flow {
	f.handlers.OnEnter(state, h)
	return f
}

// WhenAnyEnter registers h for entry into any state.
func (f *Flow) WhenAnyEnter(h handlers.StateHandler) *Flow {
	f.handlers.OnAnyEnter(h)
	return f
}

// WhenLeave registers h for exit from state.
func (f *Flow) WhenLeave(state domain.State, h handlers.StateHandler) *Flow {
	f.handlers.OnLeave(state, h)
	return f
}

// WhenAnyLeave registers h for exit from any state.
func (f *Flow) WhenAnyLeave(h handlers.StateHandler) *Flow {
	f.handlers.OnAnyLeave(h)
	return f
}

// WhenEvent registers h for event, run before the state change.
func (f *Flow) WhenEvent(event domain.Event, h handlers.EventHandler) *Flow {
	f.handlers.OnEvent(event, h)
	return f
}

// WhenAnyEvent registers h for every event.
func (f *Flow) WhenAnyEvent(h handlers.EventHandler) *Flow {
	f.handlers.OnAnyEvent(h)
	return f
}

// WhenError replaces the default error handler, which logs the error.
func (f *Flow) WhenError(h handlers.ErrorHandler) *Flow {
	f.handlers.OnError(h)
	return f
}

// WhenFinalState registers h, run once when a context terminates in a final
// state or after an execution error.
func (f *Flow) WhenFinalState(h handlers.FinalHandler) *Flow {
	f.handlers.OnFinal(h)
	return f
}

// Start binds c to the flow and enters the start state. A context resumed with
// domain.WithState keeps its state and is not entered again.
func (f *Flow) Start(c *domain.Context) error {
	return f.engine.Start(c, false)
}

// Resume is Start, but a context carrying a state is entered into it again.
func (f *Flow) Resume(c *domain.Context) error {
	return f.engine.Start(c, true)
}

// Trigger fires event on c. It returns a *domain.LogicViolationError wrapping
// domain.ErrInvalidEvent when the current state has no edge for event.
func (f *Flow) Trigger(event domain.Event, c *domain.Context) (bool, error) {
	return f.engine.Trigger(event, c)
}

// SafeTrigger fires event on c and reports false where Trigger would fail.
func (f *Flow) SafeTrigger(event domain.Event, c *domain.Context) bool {
	return f.engine.SafeTrigger(event, c)
}

// ConditionTrigger fires event only while c is in expected.
func (f *Flow) ConditionTrigger(event domain.Event, c *domain.Context, expected domain.State) (bool, error) {
	return f.engine.ConditionTrigger(event, c, expected)
}

// WaitForCompletion blocks until c terminates. Do not call it from a handler
// running on a single-worker executor.
func (f *Flow) WaitForCompletion(c *domain.Context) {
	<-c.Done()
}

// Wait blocks until c terminates or ctx is done.
func (f *Flow) Wait(ctx context.Context, c *domain.Context) error {
	return c.Wait(ctx)
}

// AvailableTransitions lists the edges leaving state.
func (f *Flow) AvailableTransitions(state domain.State) []domain.Transition {
	return f.engine.AvailableTransitions(state)
}

// IsEventHandledByState reports whether state has an edge for event.
func (f *Flow) IsEventHandledByState(state domain.State, event domain.Event) bool {
	return f.engine.Collection().Handles(state, event)
}

func (f *Flow) StartState() domain.State {
	return f.engine.StartState()
}

// Transitions returns every edge of the graph.
func (f *Flow) Transitions() []domain.Transition {
	return f.engine.Collection().Transitions()
}

// Collection exposes the validated graph.
func (f *Flow) Collection() *graph.Collection {
	return f.engine.Collection()
}

// SetExecutor replaces the executor. It returns domain.ErrExecutorLocked once a
// context has been started.
func (f *Flow) SetExecutor(x ports.Executor) error {
	return f.engine.SetExecutor(x)
}

// Close releases the executor the flow created when none was configured.
// Steps submitted afterwards are dropped.
func (f *Flow) Close() {
	f.engine.Close()
}
