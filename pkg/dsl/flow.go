package dsl

import (
	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/aretw0/flowfsm/pkg/graph"
)

// Definition is the top-level graph description.
type Definition struct {
	start    domain.State
	defaults []*Edge
	children []*Edge
}

// NewFlow opens the top-level scope entered at start.
func NewFlow(start domain.State, defaults ...*Edge) *Definition {
	return &Definition{start: start, defaults: append([]*Edge(nil), defaults...)}
}

// Transit returns a copy of d whose start state continues with children.
func (d *Definition) Transit(children ...*Edge) *Definition {
	cp := *d
	cp.children = append([]*Edge(nil), children...)
	return &cp
}

// Start returns the initial state of the flow.
func (d *Definition) Start() domain.State {
	return d.start
}

// Assemble resolves the definition into a flat transition list without validating it.
func (d *Definition) Assemble() ([]domain.Transition, error) {
	a := newAssembler()
	root := a.newScope(d.defaults, false)
	if err := a.scope(root, d.start, d.children); err != nil {
		return nil, err
	}
	return a.out, nil
}

// Build assembles the definition and indexes it. Assembly errors are always
// reported; skipValidation only skips the graph well-formedness checks.
func (d *Definition) Build(skipValidation bool) (*graph.Collection, error) {
	ts, err := d.Assemble()
	if err != nil {
		return nil, err
	}
	return graph.New(ts, !skipValidation)
}
