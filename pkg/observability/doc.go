// Package observability turns engine lifecycle hooks into Prometheus metrics and log lines.
//
// Metrics owns the collectors. LogHooks writes the same events to a *slog.Logger.
// Combine fans one flow out to several hook sets in order.
package observability
