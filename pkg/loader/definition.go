package loader

import (
	"fmt"

	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/aretw0/flowfsm/pkg/dsl"
)

// Definition converts the document into a dsl definition.
func (d *Document) Definition() (*dsl.Definition, error) {
	b := &builder{doc: d, subs: make(map[string]*dsl.SubGraph), building: make(map[string]bool)}

	defaults, err := b.edges(d.Defaults, "defaults")
	if err != nil {
		return nil, err
	}
	children, err := b.edges(d.Transitions, "transitions")
	if err != nil {
		return nil, err
	}
	return dsl.NewFlow(domain.State(d.Start), defaults...).Transit(children...), nil
}

type builder struct {
	doc      *Document
	subs     map[string]*dsl.SubGraph
	building map[string]bool
}

func (b *builder) subGraph(name string) (*dsl.SubGraph, error) {
	if sub, ok := b.subs[name]; ok {
		return sub, nil
	}
	spec, ok := b.doc.SubGraphs[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown subgraph %q", ErrInvalidDocument, name)
	}
	if b.building[name] {
		return nil, fmt.Errorf("%w: subgraph %q embeds itself", ErrInvalidDocument, name)
	}
	if spec.Start == "" {
		return nil, fmt.Errorf("%w: subgraph %q has no start state", ErrInvalidDocument, name)
	}

	b.building[name] = true
	defer delete(b.building, name)

	path := "subgraphs." + name
	defaults, err := b.edges(spec.Defaults, path+".defaults")
	if err != nil {
		return nil, err
	}
	children, err := b.edges(spec.Transitions, path+".transitions")
	if err != nil {
		return nil, err
	}

	sub := dsl.NewSubGraph(domain.State(spec.Start), defaults...).Transit(children...)
	b.subs[name] = sub
	return sub, nil
}

func (b *builder) edges(specs []EdgeSpec, path string) ([]*dsl.Edge, error) {
	out := make([]*dsl.Edge, 0, len(specs))
	for i, spec := range specs {
		e, err := b.edge(spec, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *builder) edge(spec EdgeSpec, path string) (*dsl.Edge, error) {
	set := 0
	for _, v := range []string{spec.To, spec.Finish, spec.BackTo, spec.Emit, spec.SubGraph} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: %s: exactly one of to, finish, back_to, emit or subgraph is required", ErrInvalidDocument, path)
	}

	if spec.Emit != "" {
		if len(spec.On) > 0 || len(spec.Transit) > 0 {
			return nil, fmt.Errorf("%w: %s: emit takes neither on nor transit", ErrInvalidDocument, path)
		}
		return dsl.Emit(domain.Event(spec.Emit)), nil
	}

	if len(spec.On) == 0 {
		return nil, fmt.Errorf("%w: %s: missing on", ErrInvalidDocument, path)
	}
	events := make([]domain.Event, len(spec.On))
	for i, on := range spec.On {
		events[i] = domain.Event(on)
	}
	on := dsl.On(events...)

	var e *dsl.Edge
	switch {
	case spec.To != "":
		e = on.To(domain.State(spec.To))
	case spec.Finish != "":
		e = on.Finish(domain.State(spec.Finish))
	case spec.BackTo != "":
		e = on.BackTo(domain.State(spec.BackTo))
	default:
		sub, err := b.subGraph(spec.SubGraph)
		if err != nil {
			return nil, err
		}
		e = on.SubGraph(sub)
	}

	if spec.Transit == nil {
		return e, nil
	}
	children, err := b.edges(spec.Transit, path+".transit")
	if err != nil {
		return nil, err
	}
	return e.Transit(children...), nil
}
