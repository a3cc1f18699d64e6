package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics records order, payment and outbox activity counters.
type LifecycleMetrics struct {
	transitions    *prometheus.CounterVec
	payments       *prometheus.CounterVec
	returns        prometheus.Counter
	outboxPublish  *prometheus.CounterVec
	outboxDuration *prometheus.HistogramVec
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided registerer.
// A nil registerer returns a no-op instance, which keeps tests and tools quiet.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions by target status.",
	}, []string{"status"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_decisions_total",
		Help: "Payment review decisions by outcome.",
	}, []string{"decision"})
	returns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_returns_total",
		Help: "Processed order returns.",
	})
	outboxPublish := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_total",
		Help: "Outbox publish attempts by result.",
	}, []string{"result"})
	outboxDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"worker"})
	reg.MustRegister(transitions, payments, returns, outboxPublish, outboxDuration)
	return &LifecycleMetrics{
		transitions:    transitions,
		payments:       payments,
		returns:        returns,
		outboxPublish:  outboxPublish,
		outboxDuration: outboxDuration,
	}
}

// IncTransition counts a completed transition into the named status.
func (m *LifecycleMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncPaymentDecision counts a payment review outcome.
func (m *LifecycleMetrics) IncPaymentDecision(decision string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(decision)).Inc()
}

// IncReturn counts a processed return.
func (m *LifecycleMetrics) IncReturn() {
	if m == nil || m.returns == nil {
		return
	}
	m.returns.Inc()
}

// IncOutboxPublish counts an outbox publish attempt result.
func (m *LifecycleMetrics) IncOutboxPublish(result string) {
	if m == nil || m.outboxPublish == nil {
		return
	}
	m.outboxPublish.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveOutboxBatch records how long a publish batch took for the named worker.
func (m *LifecycleMetrics) ObserveOutboxBatch(worker string, duration time.Duration) {
	if m == nil || m.outboxDuration == nil {
		return
	}
	m.outboxDuration.WithLabelValues(normalizeLabel(worker)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
