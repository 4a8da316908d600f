/*
Package dsl provides a fluent Go DSL for describing flowfsm graphs.

A graph is described as a tree of immutable edge templates and then resolved in a
single pass into a flat list of transitions, which is validated by package graph.
Sub-graphs are described independently of where they are embedded: their exits are
raised with Emit and matched by event against the edges handed to the embedding
edge's Transit call.

Example usage:

	package main

	import (
		"github.com/aretw0/flowfsm/pkg/dsl"
	)

	func main() {
		checkout := dsl.NewSubGraph("CART",
			dsl.On("cancel").Finish("CANCELLED"),
		).Transit(
			dsl.On("pay").To("PAYING").Transit(
				dsl.Emit("paid"),
				dsl.On("decline").BackTo("CART"),
			),
		)

		flow := dsl.NewFlow("BROWSING").Transit(
			dsl.On("checkout").SubGraph(checkout).Transit(
				dsl.On("paid").Finish("DONE"),
			),
		)

		collection, err := flow.Build(false)
		// ... or hand flow to flowfsm.New
	}

Defaults passed to NewFlow or NewSubGraph are inherited by every state of that scope
that does not declare the event itself. Edges finalized with BackTo or Finish never
inherit defaults, and neither do states reached by To without a Transit call.
*/
package dsl
