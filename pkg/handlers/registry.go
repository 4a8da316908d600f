// Package handlers stores the lifecycle callbacks of a flow and dispatches them.
package handlers

import (
	"sync"

	"github.com/aretw0/flowfsm/pkg/domain"
)

// StateHandler runs when a context enters or leaves state.
type StateHandler func(state domain.State, c *domain.Context) error

// EventHandler runs when an accepted event is about to move c from one state to another.
type EventHandler func(event domain.Event, from, to domain.State, c *domain.Context) error

// ErrorHandler receives every execution error before the owning context is terminated.
type ErrorHandler func(err *domain.ExecutionError)

// FinalHandler runs once a context has terminated, in a final state or after an
// execution error. It is not called for contexts aborted with Stop.
type FinalHandler func(state domain.State, c *domain.Context) error

// Registry holds at most one handler per key. Registering again replaces the previous one.
type Registry struct {
	mu       sync.RWMutex
	enter    map[domain.State]StateHandler
	leave    map[domain.State]StateHandler
	events   map[domain.Event]EventHandler
	anyEnter StateHandler
	anyLeave StateHandler
	anyEvent EventHandler
	onError  ErrorHandler
	onFinal  FinalHandler
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		enter:  make(map[domain.State]StateHandler),
		leave:  make(map[domain.State]StateHandler),
		events: make(map[domain.Event]EventHandler),
	}
}

// OnEnter sets the entry handler of state.
func (r *Registry) OnEnter(state domain.State, h StateHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enter[state] = h
}

// OnAnyEnter sets the entry handler run after the state specific one.
func (r *Registry) OnAnyEnter(h StateHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anyEnter = h
}

// OnLeave sets the exit handler of state.
func (r *Registry) OnLeave(state domain.State, h StateHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leave[state] = h
}

// OnAnyLeave sets the exit handler run after the state specific one.
func (r *Registry) OnAnyLeave(h StateHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anyLeave = h
}

// OnEvent sets the handler of event.
func (r *Registry) OnEvent(event domain.Event, h EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event] = h
}

// OnAnyEvent sets the handler run after the event specific one.
func (r *Registry) OnAnyEvent(h EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anyEvent = h
}

// OnError replaces the error handler.
func (r *Registry) OnError(h ErrorHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = h
}

// OnFinal sets the handler run once a context terminates.
func (r *Registry) OnFinal(h FinalHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onFinal = h
}

// Entered calls the handler for state, then the "any" handler.
// It stops at the first error.
func (r *Registry) Entered(state domain.State, c *domain.Context) error {
	r.mu.RLock()
	specific, fallback := r.enter[state], r.anyEnter
	r.mu.RUnlock()
	return callState(state, c, specific, fallback)
}

// Left calls the handler for state, then the "any" handler.
func (r *Registry) Left(state domain.State, c *domain.Context) error {
	r.mu.RLock()
	specific, fallback := r.leave[state], r.anyLeave
	r.mu.RUnlock()
	return callState(state, c, specific, fallback)
}

// Triggered calls the handler for event, then the "any" handler.
func (r *Registry) Triggered(event domain.Event, from, to domain.State, c *domain.Context) error {
	r.mu.RLock()
	specific, fallback := r.events[event], r.anyEvent
	r.mu.RUnlock()

	for _, h := range []EventHandler{specific, fallback} {
		if h == nil {
			continue
		}
		if err := h(event, from, to, c); err != nil {
			return err
		}
	}
	return nil
}

// Failed passes err to the error handler. It reports false when none is registered.
func (r *Registry) Failed(err *domain.ExecutionError) bool {
	r.mu.RLock()
	h := r.onError
	r.mu.RUnlock()

	if h == nil {
		return false
	}
	h(err)
	return true
}

// Finished calls the final state handler, if any.
func (r *Registry) Finished(state domain.State, c *domain.Context) error {
	r.mu.RLock()
	h := r.onFinal
	r.mu.RUnlock()

	if h == nil {
		return nil
	}
	return h(state, c)
}

func callState(state domain.State, c *domain.Context, hs ...StateHandler) error {
	for _, h := range hs {
		if h == nil {
			continue
		}
		if err := h(state, c); err != nil {
			return err
		}
	}
	return nil
}
