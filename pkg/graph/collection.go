// Package graph holds the validated, immutable transition lookup used by the engine.
package graph

import (
	"github.com/aretw0/flowfsm/pkg/domain"
)

// Collection indexes resolved transitions by origin state and event.
// It is read-only after New returns and safe for concurrent use.
type Collection struct {
	transitions []domain.Transition
	index       map[domain.State]map[domain.Event]domain.Transition
	order       map[domain.State][]domain.Event
	states      []domain.State
	final       map[domain.State]struct{}
}

// New indexes ts and, unless validate is false, checks the graph is well formed.
// The first violated rule is returned as a *domain.DefinitionError.
func New(ts []domain.Transition, validate bool) (*Collection, error) {
	c := &Collection{
		transitions: append([]domain.Transition(nil), ts...),
		index:       make(map[domain.State]map[domain.Event]domain.Transition),
		order:       make(map[domain.State][]domain.Event),
		final:       make(map[domain.State]struct{}),
	}

	seen := make(map[domain.State]struct{})
	addState := func(s domain.State) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		c.states = append(c.states, s)
	}

	for _, t := range c.transitions {
		addState(t.From)
		addState(t.To)

		events, ok := c.index[t.From]
		if !ok {
			events = make(map[domain.Event]domain.Transition)
			c.index[t.From] = events
		}
		if _, dup := events[t.Event]; !dup {
			c.order[t.From] = append(c.order[t.From], t.Event)
		}
		events[t.Event] = t

		if t.Final {
			c.final[t.To] = struct{}{}
		}
	}

	if validate {
		if err := c.validate(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collection) validate() error {
	if len(c.transitions) == 0 {
		return &domain.DefinitionError{Reason: domain.ErrNoTransitions}
	}

	type key struct {
		from  domain.State
		event domain.Event
	}
	declared := make(map[key]struct{}, len(c.transitions))

	for i := range c.transitions {
		t := c.transitions[i]

		if c.IsFinal(t.From) {
			return &domain.DefinitionError{Reason: domain.ErrFinalStateEvents, Transition: &t}
		}

		k := key{t.From, t.Event}
		if _, dup := declared[k]; dup {
			return &domain.DefinitionError{Reason: domain.ErrAmbiguousTransition, Transition: &t}
		}
		declared[k] = struct{}{}

		if !c.IsFinal(t.To) && len(c.index[t.To]) == 0 {
			return &domain.DefinitionError{Reason: domain.ErrDanglingState, Transition: &t, State: t.To}
		}

		if t.From == t.To {
			return &domain.DefinitionError{Reason: domain.ErrCircularTransition, Transition: &t}
		}
	}
	return nil
}

// Transition returns the edge leaving state on event.
func (c *Collection) Transition(state domain.State, event domain.Event) (domain.Transition, bool) {
	t, ok := c.index[state][event]
	return t, ok
}

// Handles reports whether state has an edge for event.
func (c *Collection) Handles(state domain.State, event domain.Event) bool {
	_, ok := c.index[state][event]
	return ok
}

// From returns the edges leaving state, in declaration order.
func (c *Collection) From(state domain.State) []domain.Transition {
	events := c.order[state]
	if len(events) == 0 {
		return nil
	}
	out := make([]domain.Transition, 0, len(events))
	for _, e := range events {
		out = append(out, c.index[state][e])
	}
	return out
}

// IsFinal reports whether state is the destination of a final edge.
func (c *Collection) IsFinal(state domain.State) bool {
	_, ok := c.final[state]
	return ok
}

// States returns every state mentioned by the graph, in first-seen order.
func (c *Collection) States() []domain.State {
	return append([]domain.State(nil), c.states...)
}

// FinalStates returns the final states in first-seen order.
func (c *Collection) FinalStates() []domain.State {
	var out []domain.State
	for _, s := range c.states {
		if c.IsFinal(s) {
			out = append(out, s)
		}
	}
	return out
}

// Transitions returns a copy of the indexed edge list.
func (c *Collection) Transitions() []domain.Transition {
	return append([]domain.Transition(nil), c.transitions...)
}

// Len returns the number of edges.
func (c *Collection) Len() int {
	return len(c.transitions)
}
