package observability

import (
	"context"
	"fmt"

	"github.com/aretw0/flowfsm/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of a flow.
type Metrics struct {
	StateEntries *prometheus.CounterVec
	Events       *prometheus.CounterVec
	Terminations *prometheus.CounterVec
	Errors       *prometheus.CounterVec
	// Active counts contexts started and not yet terminated. Resumed contexts are not counted.
	Active prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		StateEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_entries_total",
				Help:      "Total number of state entries",
			},
			[]string{"state"},
		),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Total number of accepted events",
			},
			[]string{"event"},
		),
		Terminations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "terminations_total",
				Help:      "Total number of terminated contexts by last state",
			},
			[]string{"state"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "execution_errors_total",
				Help:      "Total number of handler failures",
			},
			[]string{"phase"},
		),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_contexts",
			Help:      "Contexts started and not yet terminated",
		}),
	}

	for _, c := range []prometheus.Collector{m.StateEntries, m.Events, m.Terminations, m.Errors, m.Active} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnContextStart: func(_ context.Context, _ *domain.StateEvent) {
			m.Active.Inc()
		},
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			m.StateEntries.WithLabelValues(string(e.State)).Inc()
		},
		OnEventTrigger: func(_ context.Context, e *domain.TriggerEvent) {
			m.Events.WithLabelValues(string(e.Event)).Inc()
		},
		OnContextEnd: func(_ context.Context, e *domain.StateEvent) {
			m.Active.Dec()
			m.Terminations.WithLabelValues(string(e.State)).Inc()
		},
		OnError: func(_ context.Context, e *domain.ErrorEvent) {
			m.Errors.WithLabelValues(string(e.Phase)).Inc()
		},
	}
}
