package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventContextStart   EventType = "context_start"
	EventStateEnter     EventType = "state_enter"
	EventStateLeave     EventType = "state_leave"
	EventTriggered      EventType = "event_triggered"
	EventContextEnd     EventType = "context_terminated"
	EventExecutionError EventType = "execution_error"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ContextID string    `json:"context_id"`
}

// StateEvent represents entry into, exit from, or termination in a state.
type StateEvent struct {
	EventBase
	State State `json:"state"`
}

// TriggerEvent represents an accepted event about to change the state.
type TriggerEvent struct {
	EventBase
	Event Event `json:"event"`
	From  State `json:"from"`
	To    State `json:"to"`
}

// ErrorEvent represents an execution error that terminated a context.
type ErrorEvent struct {
	EventBase
	State State  `json:"state"`
	Event Event  `json:"event,omitempty"`
	Phase Phase  `json:"phase"`
	Error string `json:"error"`
}

// LifecycleHooks defines callbacks for engine observability.
// They run after the user handlers of the same step and must not block.
type LifecycleHooks struct {
	OnContextStart func(context.Context, *StateEvent)
	OnStateEnter   func(context.Context, *StateEvent)
	OnStateLeave   func(context.Context, *StateEvent)
	OnEventTrigger func(context.Context, *TriggerEvent)
	OnContextEnd   func(context.Context, *StateEvent)
	OnError        func(context.Context, *ErrorEvent)
}

// NewEventBase stamps an event for the given context.
func NewEventBase(t EventType, c *Context) EventBase {
	return EventBase{
		Timestamp: time.Now(),
		Type:      t,
		ContextID: c.ID(),
	}
}
