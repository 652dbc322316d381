package circuitbreaker

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BreakerMetrics holds Prometheus metrics for circuit breakers.
type BreakerMetrics struct {
	state       *prometheus.GaugeVec
	requests    *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

var (
	breakerMetricsInstance *BreakerMetrics
	breakerMetricsOnce     sync.Once
)

// GetBreakerMetrics returns the singleton breaker metrics instance.
func GetBreakerMetrics() *BreakerMetrics {
	breakerMetricsOnce.Do(func() {
		breakerMetricsInstance = newBreakerMetrics()
	})
	return breakerMetricsInstance
}

// MustRegister registers the breaker collectors with registry.
func (m *BreakerMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.state,
		m.requests,
		m.transitions,
	)
}

func newBreakerMetrics() *BreakerMetrics {
	return &BreakerMetrics{
		state: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gateway",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		requests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "circuit_breaker",
				Name:      "requests_total",
				Help:      "Total number of calls through circuit breakers by result",
			},
			[]string{"name", "result"},
		),
		transitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "circuit_breaker",
				Name:      "transitions_total",
				Help:      "Total number of circuit breaker state transitions",
			},
			[]string{"name", "from", "to"},
		),
	}
}
