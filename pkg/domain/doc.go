/*
Package domain contains the core domain models of the flowfsm engine.

It defines the fundamental entities of the state machine: the opaque State and Event
identifiers, the resolved Transition edge, the runtime Context driven through a graph,
and the error taxonomy shared by the builder and the engine. This package is kept pure
and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - State, Event: comparable symbolic identifiers supplied by the user.
  - Transition: a resolved, immutable edge (event, from, to, final).
  - Context: one runtime instance with an atomic current state, a termination flag
    and a completion signal.
  - DefinitionError, LogicViolationError, ExecutionError: build-time, per-trigger and
    in-handler failures respectively.
*/
package domain
