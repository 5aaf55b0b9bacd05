package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records engine activity as Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	turns        *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec
	turnErrors   prometheus.Counter
	staleStates  prometheus.Counter
	dialogs      *prometheus.CounterVec
	prompts      *prometheus.CounterVec
	inFlight     prometheus.Gauge
}

// NewMetrics creates the collectors on a dedicated registry, alongside the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_turns_total",
				Help: "Total number of processed turns by outcome",
			},
			[]string{"activity", "outcome"},
		),
		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "turnstile_turn_duration_seconds",
				Help:    "Duration of turns, lock wait included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		turnErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_turn_errors_total",
			Help: "Total number of turns that failed or were aborted",
		}),
		staleStates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_stale_state_total",
			Help: "Total number of stored stacks discarded as stale",
		}),
		dialogs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_dialog_events_total",
				Help: "Dialogs begun and ended",
			},
			[]string{"dialog_id", "event"},
		),
		prompts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_prompt_answers_total",
				Help: "Prompt answers by result",
			},
			[]string{"dialog_id", "prompt_id", "result"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "turnstile_turns_in_flight",
			Help: "Turns currently being processed",
		}),
	}

	reg.MustRegister(
		m.turns, m.turnDuration, m.turnErrors, m.staleStates, m.dialogs, m.prompts, m.inFlight,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(context.Context, *domain.TurnEvent) {
			m.inFlight.Inc()
		},
		OnTurnEnd: func(_ context.Context, e *domain.TurnEvent) {
			m.inFlight.Dec()
			m.turns.WithLabelValues(string(e.ActivityKind), string(e.Outcome)).Inc()
			m.turnDuration.WithLabelValues(string(e.Outcome)).Observe(e.Duration.Seconds())
		},
		OnTurnError: func(context.Context, *domain.TurnEvent, error) {
			m.turnErrors.Inc()
		},
		OnStaleState: func(context.Context, *domain.TurnEvent, error) {
			m.staleStates.Inc()
		},
		OnDialogBegin: func(_ context.Context, e *domain.DialogEvent) {
			m.dialogs.WithLabelValues(e.DialogID, "begin").Inc()
		},
		OnDialogEnd: func(_ context.Context, e *domain.DialogEvent) {
			m.dialogs.WithLabelValues(e.DialogID, "end").Inc()
		},
		OnPromptAccepted: func(_ context.Context, e *domain.PromptEvent) {
			m.prompts.WithLabelValues(e.DialogID, e.PromptID, "accepted").Inc()
		},
		OnPromptRejected: func(_ context.Context, e *domain.PromptEvent) {
			m.prompts.WithLabelValues(e.DialogID, e.PromptID, "rejected").Inc()
		},
	}
}
