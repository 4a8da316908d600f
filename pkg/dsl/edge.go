package dsl

import (
	"github.com/aretw0/flowfsm/pkg/domain"
)

type edgeKind int

const (
	// kindResolved edges have a known destination (To, BackTo, Finish).
	kindResolved edgeKind = iota
	// kindPlaceholder edges leave a sub-graph; the destination comes from the embedding.
	kindPlaceholder
	// kindEmbed edges enter a sub-graph described up front.
	kindEmbed
	// kindDeferred edges enter a sub-graph produced while resolving.
	kindDeferred
)

func (k edgeKind) String() string {
	switch k {
	case kindResolved:
		return "resolved"
	case kindPlaceholder:
		return "emit"
	case kindEmbed:
		return "subgraph"
	case kindDeferred:
		return "subgraph-func"
	}
	return "unknown"
}

// Edge is an immutable edge template. Its origin is the state whose Transit
// call lists it; it is resolved when the enclosing definition is assembled.
type Edge struct {
	kind     edgeKind
	events   []domain.Event
	to       domain.State
	final    bool
	backTo   bool
	transit  bool
	children []*Edge
	sub      *SubGraph
	deferred func() *SubGraph
}

// EdgeBuilder finalizes an edge for one or more events.
type EdgeBuilder struct {
	events []domain.Event
}

// On starts describing an edge. Several events produce one derived
// transition per event, sharing destination and finality.
func On(events ...domain.Event) *EdgeBuilder {
	return &EdgeBuilder{events: append([]domain.Event(nil), events...)}
}

// Emit raises event out of the enclosing sub-graph. It is shorthand for On(event).Emit().
func Emit(event domain.Event) *Edge {
	return On(event).Emit()
}

// To continues the graph at state. The state inherits scope defaults only if Transit is called.
func (b *EdgeBuilder) To(state domain.State) *Edge {
	return &Edge{kind: kindResolved, events: b.events, to: state}
}

// Finish ends the graph at state, marking it final.
func (b *EdgeBuilder) Finish(state domain.State) *Edge {
	return &Edge{kind: kindResolved, events: b.events, to: state, final: true}
}

// BackTo closes a cycle to an already described state. It never inherits defaults.
func (b *EdgeBuilder) BackTo(state domain.State) *Edge {
	return &Edge{kind: kindResolved, events: b.events, to: state, backTo: true}
}

// Emit produces a placeholder resolved against the edges of the embedding Transit call.
func (b *EdgeBuilder) Emit() *Edge {
	return &Edge{kind: kindPlaceholder, events: b.events}
}

// SubGraph embeds sub under this edge. Events emitted by sub are matched
// against the edges passed to Transit on the returned edge.
func (b *EdgeBuilder) SubGraph(sub *SubGraph) *Edge {
	return &Edge{kind: kindEmbed, events: b.events, sub: sub}
}

// SubGraphFunc embeds the sub-graph returned by fn, called once while the
// definition is assembled. Use it to embed a fresh instance per call site.
func (b *EdgeBuilder) SubGraphFunc(fn func() *SubGraph) *Edge {
	return &Edge{kind: kindDeferred, events: b.events, deferred: fn}
}

// Transit returns a copy of e whose destination continues with children.
// For sub-graph edges the children are the exits of the embedded graph.
func (e *Edge) Transit(children ...*Edge) *Edge {
	cp := *e
	cp.transit = true
	cp.children = append([]*Edge(nil), children...)
	return &cp
}

// SubGraph is a reusable graph template with its own start state and defaults.
type SubGraph struct {
	start    domain.State
	defaults []*Edge
	children []*Edge
}

// NewSubGraph opens a sub-graph scope entered at start.
func NewSubGraph(start domain.State, defaults ...*Edge) *SubGraph {
	return &SubGraph{start: start, defaults: append([]*Edge(nil), defaults...)}
}

// Transit returns a copy of s whose start state continues with children.
func (s *SubGraph) Transit(children ...*Edge) *SubGraph {
	cp := *s
	cp.children = append([]*Edge(nil), children...)
	return &cp
}

// Start returns the state the sub-graph is entered at.
func (s *SubGraph) Start() domain.State {
	return s.start
}
