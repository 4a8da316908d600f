package domain

import (
	"errors"
	"fmt"
)

// Definition errors: the graph cannot be built.
var (
	ErrNoTransitions       = errors.New("no transitions defined")
	ErrFinalStateEvents    = errors.New("events defined for final state")
	ErrAmbiguousTransition = errors.New("ambiguous transition")
	ErrDanglingState       = errors.New("no events defined for non-final state")
	ErrCircularTransition  = errors.New("circular transition")
	ErrAmbiguousDefault    = errors.New("ambiguous default transition")
	ErrUnresolvedEmit      = errors.New("emitted event is not handled by the enclosing transit")
	ErrUnmatchedEvent      = errors.New("outer transition does not match any emitted event")
	ErrInvalidEdge         = errors.New("invalid edge")
)

// Runtime errors.
var (
	// ErrInvalidEvent is the reason of every LogicViolationError.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrHandlerPanic wraps a panic recovered from a user handler.
	ErrHandlerPanic = errors.New("handler panicked")

	ErrNotStarted      = errors.New("context not started")
	ErrTerminated      = errors.New("context terminated")
	ErrExecutorLocked  = errors.New("executor cannot be changed after start")
	ErrContextNotFound = errors.New("context not found")
	ErrContextExists   = errors.New("context already exists")
)

// DefinitionError is returned while assembling or validating a graph.
// It is never recoverable automatically.
type DefinitionError struct {
	Reason     error
	Transition *Transition
	State      State
	Event      Event
}

func (e *DefinitionError) Error() string {
	switch {
	case e.Transition != nil:
		return fmt.Sprintf("definition error: %v: %s", e.Reason, e.Transition)
	case e.State != NoState && e.Event != "":
		return fmt.Sprintf("definition error: %v: state %s, event %s", e.Reason, e.State, e.Event)
	case e.State != NoState:
		return fmt.Sprintf("definition error: %v: state %s", e.Reason, e.State)
	case e.Event != "":
		return fmt.Sprintf("definition error: %v: event %s", e.Reason, e.Event)
	}
	return fmt.Sprintf("definition error: %v", e.Reason)
}

func (e *DefinitionError) Unwrap() error {
	return e.Reason
}

// LogicViolationError is returned by a strict trigger when the current state
// has no edge for the event.
type LogicViolationError struct {
	Event     Event
	State     State
	ContextID string
}

func (e *LogicViolationError) Error() string {
	return fmt.Sprintf("invalid event: %s triggered while in state: %s for %s", e.Event, e.State, e.ContextID)
}

func (e *LogicViolationError) Unwrap() error {
	return ErrInvalidEvent
}

// Phase names the lifecycle step in which a handler failed.
type Phase string

const (
	PhaseTrigger Phase = "trigger"
	PhaseEnter   Phase = "enter"
	PhaseLeave   Phase = "leave"
)

// ExecutionError wraps a failure escaping a user handler.
// It is always fatal to the owning context and never to the engine.
type ExecutionError struct {
	Phase   Phase
	State   State
	Event   Event // empty when the failure is not tied to an event
	Context *Context
	Err     error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("execution error in [%s] handler in state [%s] ", e.Phase, e.State)
	if e.Event != "" {
		msg += fmt.Sprintf("on event [%s] ", e.Event)
	}
	if e.Context != nil {
		msg += fmt.Sprintf("with context [%s] ", e.Context.ID())
	}
	return msg + fmt.Sprintf(": %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
