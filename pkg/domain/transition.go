package domain

import "fmt"

// State is an opaque node identifier in the transition graph.
type State string

// Event is an opaque identifier of a trigger causing a state change.
type Event string

// NoState marks an unresolved edge origin or a context that has not been started.
const NoState State = ""

// Transition is a resolved edge of the graph.
// It is immutable once handed to a collection.
type Transition struct {
	Event Event `json:"event" yaml:"event"`
	From  State `json:"from" yaml:"from"`
	To    State `json:"to" yaml:"to"`

	// Final marks the destination as a final state. Reaching it terminates the context.
	Final bool `json:"final,omitempty" yaml:"final,omitempty"`
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition{event=%s, from=%s, to=%s, final=%t}", t.Event, t.From, t.To, t.Final)
}
