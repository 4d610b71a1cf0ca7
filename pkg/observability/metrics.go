package observability

import (
	"context"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "statecraft"

// unknownLabel replaces label values that did not come from a registered workflow.
const unknownLabel = "unknown"

// Metrics holds the engine collectors.
type Metrics struct {
	transitionsTotal   *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	actionsTotal       *prometheus.CounterVec
	actionDuration     *prometheus.HistogramVec
	actionsInFlight    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of transition requests by outcome",
			},
			[]string{"entity_type", "from", "to", "result"},
		),
		transitionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transition_duration_seconds",
				Help:      "Histogram of transition request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"entity_type", "result"},
		),
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Total number of dispatched actions",
			},
			[]string{"entity_type", "phase", "action", "status"}, // status: success, error
		),
		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of action executions in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"entity_type", "action"},
		),
		actionsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "actions_in_flight",
				Help:      "Number of actions currently executing",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.collectors()...)
	}
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.transitionsTotal,
		m.transitionDuration,
		m.actionsTotal,
		m.actionDuration,
		m.actionsInFlight,
	}
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition:   m.recordTransition,
		OnActionCall:   m.recordActionCall,
		OnActionReturn: m.recordActionReturn,
	}
}

func (m *Metrics) recordTransition(_ context.Context, o *domain.TransitionOutcome) {
	entityType, from, to := unknownLabel, unknownLabel, unknownLabel
	if o.Registered {
		entityType = o.EntityType
		if o.Configured {
			from, to = o.FromState, o.ToState
		}
	}

	result := o.Result.String()
	m.transitionsTotal.WithLabelValues(entityType, from, to, result).Inc()
	m.transitionDuration.WithLabelValues(entityType, result).Observe(o.Duration.Seconds())
}

func (m *Metrics) recordActionCall(_ context.Context, _ *domain.ActionEvent) {
	m.actionsInFlight.Inc()
}

func (m *Metrics) recordActionReturn(_ context.Context, e *domain.ActionEvent) {
	m.actionsInFlight.Dec()

	status := "success"
	if e.IsError {
		status = "error"
	}
	m.actionsTotal.WithLabelValues(e.EntityType, string(e.Phase), e.Action, status).Inc()
	m.actionDuration.WithLabelValues(e.EntityType, e.Action).Observe(e.Duration.Seconds())
}

// Combine merges hook sets; every non-nil callback is invoked in order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks

	var onTransition []func(context.Context, *domain.TransitionOutcome)
	var onCall, onReturn []func(context.Context, *domain.ActionEvent)
	for _, h := range hooks {
		if h.OnTransition != nil {
			onTransition = append(onTransition, h.OnTransition)
		}
		if h.OnActionCall != nil {
			onCall = append(onCall, h.OnActionCall)
		}
		if h.OnActionReturn != nil {
			onReturn = append(onReturn, h.OnActionReturn)
		}
	}

	if len(onTransition) > 0 {
		out.OnTransition = func(ctx context.Context, o *domain.TransitionOutcome) {
			for _, fn := range onTransition {
				fn(ctx, o)
			}
		}
	}
	if len(onCall) > 0 {
		out.OnActionCall = fanOut(onCall)
	}
	if len(onReturn) > 0 {
		out.OnActionReturn = fanOut(onReturn)
	}
	return out
}

func fanOut(fns []func(context.Context, *domain.ActionEvent)) func(context.Context, *domain.ActionEvent) {
	return func(ctx context.Context, e *domain.ActionEvent) {
		for _, fn := range fns {
			fn(ctx, e)
		}
	}
}
