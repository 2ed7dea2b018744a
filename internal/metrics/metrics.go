package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ACL notifier.
type Metrics struct {
	// Hook invocations by outcome: ignored, no_subject, no_new_users, ticket_error, processed, panic
	Events *prometheus.CounterVec

	// Per-user notification results by status and transport
	Notifications *prometheus.CounterVec

	// Duration of a full hook invocation including sends
	HookLatency prometheus.Histogram
}

// New registers the notifier metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aclnotify_events_total",
			Help: "Total hook invocations by outcome",
		}, []string{"outcome"}),

		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aclnotify_notifications_total",
			Help: "Total per-user notification results by status and transport",
		}, []string{"status", "transport"}),

		HookLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aclnotify_hook_duration_seconds",
			Help:    "Duration of a hook invocation including ticket load and sends",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) IncrementEvent(outcome string) {
	if m != nil {
		m.Events.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementNotification(status, transport string) {
	if m != nil {
		m.Notifications.WithLabelValues(status, transport).Inc()
	}
}

func (m *Metrics) ObserveHookLatency(d time.Duration) {
	if m != nil {
		m.HookLatency.Observe(d.Seconds())
	}
}
