package dsl

import (
	"github.com/aretw0/flowfsm/pkg/domain"
)

// placeholder is an emitted event waiting for the embedding edge to supply a destination.
type placeholder struct {
	from  domain.State
	event domain.Event
}

// scope is one flow or sub-graph instance being resolved.
type scope struct {
	defaults []*Edge
	// embedded scopes collect emits; the top-level scope rejects them.
	embedded bool
	emitted  []placeholder
}

type memoKey struct {
	edge  *Edge
	scope *scope
}

// assembler is the builder context of a single Assemble call. Everything
// produced while resolving is collected in out.
type assembler struct {
	out      []domain.Transition
	expanded map[memoKey]bool
	subs     map[memoKey]*SubGraph
}

func newAssembler() *assembler {
	return &assembler{
		expanded: make(map[memoKey]bool),
		subs:     make(map[memoKey]*SubGraph),
	}
}

func (a *assembler) newScope(defaults []*Edge, embedded bool) *scope {
	return &scope{defaults: defaults, embedded: embedded}
}

func (a *assembler) add(event domain.Event, from, to domain.State, final bool) {
	a.out = append(a.out, domain.Transition{Event: event, From: from, To: to, Final: final})
}

// scope resolves a flow or sub-graph entered at start.
func (a *assembler) scope(sc *scope, start domain.State, children []*Edge) error {
	if err := a.checkDefaults(sc); err != nil {
		return err
	}
	if err := a.outgoing(sc, start, children, true); err != nil {
		return err
	}
	return a.expandDefaults(sc)
}

func (a *assembler) checkDefaults(sc *scope) error {
	seen := make(map[domain.Event]bool)
	for _, d := range sc.defaults {
		if d.kind != kindResolved {
			return &domain.DefinitionError{Reason: domain.ErrInvalidEdge, Event: first(d.events)}
		}
		for _, ev := range d.events {
			if seen[ev] {
				return &domain.DefinitionError{Reason: domain.ErrAmbiguousDefault, Event: ev}
			}
			seen[ev] = true
		}
	}
	return nil
}

// expandDefaults describes what follows each default destination. A defaults
// list shared by several scopes is continued once. Those states do not inherit
// the defaults themselves.
func (a *assembler) expandDefaults(sc *scope) error {
	for _, d := range sc.defaults {
		if !d.transit {
			continue
		}
		key := memoKey{d, nil}
		if a.expanded[key] {
			continue
		}
		a.expanded[key] = true
		if err := a.outgoing(sc, d.to, d.children, false); err != nil {
			return err
		}
	}
	return nil
}

// outgoing resolves the edges leaving from. When inherit is set, every scope
// default whose event is not declared by children is added as well.
func (a *assembler) outgoing(sc *scope, from domain.State, children []*Edge, inherit bool) error {
	declared := make(map[domain.Event]bool)
	for _, child := range children {
		if len(child.events) == 0 {
			return &domain.DefinitionError{Reason: domain.ErrInvalidEdge, State: from}
		}
		for _, ev := range child.events {
			declared[ev] = true
		}
		if err := a.edge(sc, from, child, child.events); err != nil {
			return err
		}
	}

	if !inherit {
		return nil
	}
	for _, d := range sc.defaults {
		for _, ev := range d.events {
			if declared[ev] {
				continue
			}
			a.add(ev, from, d.to, d.final)
		}
	}
	return nil
}

// edge resolves e leaving from for the given subset of its events.
func (a *assembler) edge(sc *scope, from domain.State, e *Edge, events []domain.Event) error {
	switch e.kind {
	case kindResolved:
		for _, ev := range events {
			a.add(ev, from, e.to, e.final)
		}
		if !e.transit {
			return nil
		}
		key := memoKey{e, sc}
		if a.expanded[key] {
			return nil
		}
		a.expanded[key] = true
		return a.outgoing(sc, e.to, e.children, !e.backTo && !e.final)

	case kindPlaceholder:
		if e.transit {
			return &domain.DefinitionError{Reason: domain.ErrInvalidEdge, State: from, Event: first(events)}
		}
		if !sc.embedded {
			return &domain.DefinitionError{Reason: domain.ErrUnresolvedEmit, State: from, Event: first(events)}
		}
		for _, ev := range events {
			sc.emitted = append(sc.emitted, placeholder{from: from, event: ev})
		}
		return nil

	case kindEmbed, kindDeferred:
		return a.embed(sc, from, e, events)
	}
	return &domain.DefinitionError{Reason: domain.ErrInvalidEdge, State: from}
}

// embed enters a sub-graph and wires its emitted events to the outer edges
// listed in e's Transit call.
func (a *assembler) embed(sc *scope, from domain.State, e *Edge, events []domain.Event) error {
	key := memoKey{e, sc}
	sub, ok := a.subs[key]
	if !ok {
		sub = e.sub
		if e.kind == kindDeferred && e.deferred != nil {
			sub = e.deferred()
		}
		if sub == nil {
			return &domain.DefinitionError{Reason: domain.ErrInvalidEdge, State: from, Event: first(events)}
		}
		a.subs[key] = sub
	}

	for _, ev := range events {
		a.add(ev, from, sub.start, false)
	}
	if a.expanded[key] {
		return nil
	}
	a.expanded[key] = true

	inner := a.newScope(sub.defaults, true)
	if err := a.scope(inner, sub.start, sub.children); err != nil {
		return err
	}

	exits := make(map[domain.Event]*Edge)
	for _, outer := range e.children {
		for _, ev := range outer.events {
			if _, dup := exits[ev]; dup {
				return &domain.DefinitionError{Reason: domain.ErrAmbiguousTransition, State: sub.start, Event: ev}
			}
			exits[ev] = outer
		}
	}

	matched := make(map[domain.Event]bool)
	for _, p := range inner.emitted {
		outer, ok := exits[p.event]
		if !ok {
			return &domain.DefinitionError{Reason: domain.ErrUnresolvedEmit, State: p.from, Event: p.event}
		}
		matched[p.event] = true
		if err := a.edge(sc, p.from, outer, []domain.Event{p.event}); err != nil {
			return err
		}
	}

	for _, outer := range e.children {
		for _, ev := range outer.events {
			if !matched[ev] {
				return &domain.DefinitionError{Reason: domain.ErrUnmatchedEvent, State: sub.start, Event: ev}
			}
		}
	}
	return nil
}

func first(events []domain.Event) domain.Event {
	if len(events) == 0 {
		return ""
	}
	return events[0]
}
