// Package runtime drives contexts through a transition collection.
//
// Every step of a run (event handler, state change, enter, leave) is a short
// task handed to a ports.Executor. State changes are compare-and-swap on the
// context, so concurrent triggers on one context advance it at most once per
// origin state.
package runtime
