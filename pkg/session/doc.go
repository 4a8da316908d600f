/*
Package session keeps live contexts addressable by id for adapters such as the HTTP API.

Operations on one id are serialized with a per-id lock; lock entries are reference
counted and dropped as soon as no caller holds them. Contexts are kept in a
ports.ContextStore and are not durable.
*/
package session
