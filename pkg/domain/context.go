package domain

import (
	"context"
	"sync"
	"sync/atomic"
)

// Driver is the engine a Context is bound to once started.
type Driver interface {
	Trigger(event Event, c *Context) (bool, error)
	SafeTrigger(event Event, c *Context) bool
	ConditionTrigger(event Event, c *Context, expected State) (bool, error)
	AvailableTransitions(state State) []Transition
	// Stopped is called once when a bound context is aborted with Stop.
	Stopped(c *Context)
}

// TaskWrapper decorates every asynchronous step scheduled for a context.
// It must call task exactly once.
type TaskWrapper func(task func())

type driverRef struct {
	Driver
}

// Context is one runtime instance driven through a graph.
// Its state is mutated exclusively by the engine via compare-and-swap.
type Context struct {
	id   string
	base context.Context

	state      atomic.Value // State
	terminated atomic.Bool
	stopped    atomic.Bool
	done       chan struct{}
	doneOnce   sync.Once

	driver  atomic.Pointer[driverRef]
	wrapper TaskWrapper

	mu   sync.RWMutex
	data map[string]any
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithID sets an explicit identifier, bypassing the id generator.
func WithID(id string) ContextOption {
	return func(c *Context) {
		c.id = id
	}
}

// WithIDGenerator sets the generator used when no explicit id is given.
func WithIDGenerator(gen IDGenerator) ContextOption {
	return func(c *Context) {
		if gen != nil && c.id == "" {
			c.id = gen()
		}
	}
}

// WithState seeds the current state, used to resume a context from a prior value.
func WithState(state State) ContextOption {
	return func(c *Context) {
		c.state.Store(state)
	}
}

// WithTaskWrapper installs an "around" hook applied to every scheduled step.
func WithTaskWrapper(w TaskWrapper) ContextOption {
	return func(c *Context) {
		c.wrapper = w
	}
}

// WithBaseContext sets the context.Context handed to lifecycle hooks.
func WithBaseContext(ctx context.Context) ContextOption {
	return func(c *Context) {
		if ctx != nil {
			c.base = ctx
		}
	}
}

// WithValues seeds the user data store.
func WithValues(values map[string]any) ContextOption {
	return func(c *Context) {
		for k, v := range values {
			c.data[k] = v
		}
	}
}

// NewContext creates an unstarted context.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		base: context.Background(),
		done: make(chan struct{}),
		data: make(map[string]any),
	}
	c.state.Store(NoState)
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = SequentialIDs()()
	}
	return c
}

// ID returns the context identifier.
func (c *Context) ID() string {
	return c.id
}

func (c *Context) String() string {
	return c.id
}

// Base returns the context.Context associated with this instance.
func (c *Context) Base() context.Context {
	return c.base
}

// State returns the current state, or NoState if the context was never started.
func (c *Context) State() State {
	return c.state.Load().(State)
}

// CompareAndSwapState moves the context from expected to target.
// Only the engine should call it.
func (c *Context) CompareAndSwapState(expected, target State) bool {
	return c.state.CompareAndSwap(expected, target)
}

// IsStarted reports whether the context carries a state.
func (c *Context) IsStarted() bool {
	return c.State() != NoState
}

// IsRunning reports whether the context is started and not yet terminated.
func (c *Context) IsRunning() bool {
	return c.IsStarted() && !c.terminated.Load()
}

// IsTerminated reports whether the context reached a final state, failed, or was stopped.
func (c *Context) IsTerminated() bool {
	return c.terminated.Load()
}

// IsStopped reports whether the context was aborted with Stop.
func (c *Context) IsStopped() bool {
	return c.stopped.Load()
}

// Terminate marks the context terminated and releases waiters.
// It returns true only for the first caller.
func (c *Context) Terminate() bool {
	if !c.terminated.CompareAndSwap(false, true) {
		return false
	}
	c.doneOnce.Do(func() { close(c.done) })
	return true
}

// Stop aborts the lifecycle early. Already scheduled steps become no-ops.
func (c *Context) Stop() {
	c.stopped.Store(true)
	if !c.Terminate() {
		return
	}
	if d := c.Driver(); d != nil {
		d.Stopped(c)
	}
}

// Done is closed when the context terminates.
func (c *Context) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the context terminates or ctx is done.
// It must not be called from a task running on a single-worker executor serving this context.
func (c *Context) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Attach binds the context to the engine driving it.
func (c *Context) Attach(d Driver) {
	c.driver.Store(&driverRef{Driver: d})
}

// Driver returns the engine the context is bound to, or nil.
func (c *Context) Driver() Driver {
	ref := c.driver.Load()
	if ref == nil {
		return nil
	}
	return ref.Driver
}

// Wrap applies the context task wrapper, if any.
func (c *Context) Wrap(task func()) func() {
	if c.wrapper == nil {
		return task
	}
	w := c.wrapper
	return func() { w(task) }
}

// Trigger fires event through the bound engine.
func (c *Context) Trigger(event Event) (bool, error) {
	d := c.Driver()
	if d == nil {
		return false, ErrNotStarted
	}
	return d.Trigger(event, c)
}

// SafeTrigger fires event and reports false instead of failing when no edge matches.
func (c *Context) SafeTrigger(event Event) bool {
	d := c.Driver()
	if d == nil {
		return false
	}
	return d.SafeTrigger(event, c)
}

// ConditionTrigger fires event only while the context is in expected.
func (c *Context) ConditionTrigger(event Event, expected State) (bool, error) {
	d := c.Driver()
	if d == nil {
		return false, ErrNotStarted
	}
	return d.ConditionTrigger(event, c, expected)
}

// AvailableTransitions lists the edges leaving the current state.
func (c *Context) AvailableTransitions() []Transition {
	d := c.Driver()
	if d == nil {
		return nil
	}
	return d.AvailableTransitions(c.State())
}

// Get retrieves a user value. Returns nil if the key does not exist.
func (c *Context) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data[key]
}

// Set stores a user value.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Delete removes a user value.
func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Values returns a snapshot copy of the user data.
func (c *Context) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]any, len(c.data))
	for k, v := range c.data {
		snapshot[k] = v
	}
	return snapshot
}
