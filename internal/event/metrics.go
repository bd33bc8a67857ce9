package event

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RelayMetrics groups the outbox relay collectors.
type RelayMetrics struct {
	Dispatched   *prometheus.CounterVec
	Failed       *prometheus.CounterVec
	Parked       *prometheus.CounterVec
	Rejected     prometheus.Counter
	Pending      prometheus.Gauge
	BreakerState prometheus.Gauge
}

// NewRelayMetrics creates the collectors and registers them with reg.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		Dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_records_dispatched_total",
			Help: "Total number of outbox records published to Kafka",
		}, []string{"event_type"}),
		Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_records_failed_total",
			Help: "Total number of failed outbox publish attempts",
		}, []string{"event_type"}),
		Parked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_records_parked_total",
			Help: "Total number of outbox records that used up their publish attempts",
		}, []string{"event_type"}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbox_breaker_rejected_total",
			Help: "Total number of publish attempts rejected by the open circuit breaker",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_records_pending",
			Help: "Number of undispatched outbox records seen by the last poll",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_circuit_breaker_state",
			Help: "Current state of the publish circuit breaker (0=closed, 1=half-open, 2=open)",
		}),
	}
	reg.MustRegister(m.Dispatched, m.Failed, m.Parked, m.Rejected, m.Pending, m.BreakerState)
	return m
}
