package observability

import (
	"context"
	"errors"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcomes reported by the lattice_dispatches_total counter.
const (
	OutcomeChanged      = "changed"
	OutcomeNoop         = "noop"
	OutcomeEpsilonCycle = "epsilon_cycle"
	OutcomeError        = "error"
)

// Metrics holds the Prometheus collectors fed by group hooks.
type Metrics struct {
	Dispatches   *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	Transitions  *prometheus.CounterVec
	LiveMachines *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_dispatches_total",
				Help: "Total number of dispatched messages by group and outcome",
			},
			[]string{"group", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lattice_dispatch_duration_seconds",
				Help:    "Duration of dispatches",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"group"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_transitions_total",
				Help: "Total number of applied transitions by group and machine",
			},
			[]string{"group", "machine"},
		),
		LiveMachines: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lattice_live_machines",
				Help: "Machine instances created minus destroyed",
			},
			[]string{"group"},
		),
	}
	for _, c := range []prometheus.Collector{m.Dispatches, m.Duration, m.Transitions, m.LiveMachines} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			m.Dispatches.WithLabelValues(e.Group, Outcome(e)).Inc()
			m.Duration.WithLabelValues(e.Group).Observe(e.Duration.Seconds())
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(e.Group, e.Machine).Inc()
		},
		OnMachineCreate: func(_ context.Context, e *domain.MachineEvent) {
			m.LiveMachines.WithLabelValues(e.Group).Inc()
		},
		OnMachineDestroy: func(_ context.Context, e *domain.MachineEvent) {
			m.LiveMachines.WithLabelValues(e.Group).Dec()
		},
	}
}

// Outcome classifies a finished dispatch.
func Outcome(e *domain.DispatchEvent) string {
	var cycle *domain.EpsilonCycleError
	switch {
	case errors.As(e.Err, &cycle):
		return OutcomeEpsilonCycle
	case e.Err != nil:
		return OutcomeError
	case e.Changes.IsEmpty():
		return OutcomeNoop
	}
	return OutcomeChanged
}
