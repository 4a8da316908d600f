/*
Package ports defines the driven ports (interfaces) of the flowfsm engine.

These interfaces decouple the engine from the way work is scheduled and from the
way live contexts are kept by the surrounding application.

# Key Interfaces

  - Executor: runs the short asynchronous steps of the engine (trigger, leave, enter).
  - ContextStore: keeps live contexts addressable by id for adapters such as the HTTP API.
*/
package ports
