/*
Package flowfsm is a finite-state-machine runtime for event driven workflows.

A flow is a validated, immutable graph of states and events plus a set of lifecycle
handlers. Any number of contexts run through one flow concurrently; every step of a
run is a short task handed to an executor, and state changes are compare-and-swap on
the context, so concurrent triggers never advance a context twice from one state.

# Concept

Graphs are described with package dsl: edges are finalized with To, Finish, BackTo or
Emit, and reusable sub-graphs are embedded with SubGraph. Defaults declared for a flow
or sub-graph are inherited by every state of that scope that does not handle the
event itself. Assembly and validation happen once, in New.

# Key Features

  - Composable sub-graphs: emitted events are wired to the edges of the embedding call.
  - Strict validation: empty graphs, duplicate edges, dangling states, self loops and
    edges leaving final states are rejected before any context runs.
  - Pluggable executors: serial (default), pooled or inline.
  - Handler failures are fatal to one context, never to the flow.

# Usage

	package main

	import (
		"log"

		"github.com/aretw0/flowfsm"
		"github.com/aretw0/flowfsm/pkg/domain"
		"github.com/aretw0/flowfsm/pkg/dsl"
	)

	func main() {
		flow, err := flowfsm.New(
			dsl.NewFlow("DRAFT").Transit(
				dsl.On("submit").To("REVIEW").Transit(
					dsl.On("approve").Finish("PUBLISHED"),
					dsl.On("reject").BackTo("DRAFT"),
				),
			),
		)
		if err != nil {
			log.Fatal(err)
		}

		flow.WhenEnter("REVIEW", func(s domain.State, c *domain.Context) error {
			log.Printf("%s waiting for review", c.ID())
			return nil
		})

		c := domain.NewContext()
		if err := flow.Start(c); err != nil {
			log.Fatal(err)
		}
		_, _ = flow.Trigger("submit", c)
		_, _ = flow.Trigger("approve", c)
		flow.WaitForCompletion(c)
	}

Note the second Trigger may race with the first: triggers are resolved against the
state observed at call time. Chain triggers from handlers, or use ConditionTrigger,
when ordering matters.
*/
package flowfsm
