package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notifier"

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeRetry   = "retry"
	OutcomeDropped = "dropped"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics holds the service counters on a dedicated registry.
type Metrics struct {
	registry       *prometheus.Registry
	BusDeliveries  *prometheus.CounterVec
	ChannelSends   *prometheus.CounterVec
	InvalidTokens  prometheus.Counter
	ReminderSweeps *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BusDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_deliveries_total",
			Help:      "Bus handler invocations by event kind and outcome.",
		}, []string{"kind", "outcome"}),
		ChannelSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_sends_total",
			Help:      "Per-recipient channel sends by channel and outcome.",
		}, []string{"channel", "outcome"}),
		InvalidTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_tokens_total",
			Help:      "Push tokens reported permanently invalid by the transport.",
		}),
		ReminderSweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_sweeps_total",
			Help:      "Reminder sweep runs by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.BusDeliveries, m.ChannelSends, m.InvalidTokens, m.ReminderSweeps)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
