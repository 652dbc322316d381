package retry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RetryMetrics holds Prometheus metrics for retried operations.
type RetryMetrics struct {
	attempts  prometheus.Counter
	exhausted prometheus.Counter
}

var (
	retryMetrics     *RetryMetrics
	retryMetricsOnce sync.Once
)

// GetRetryMetrics returns the singleton retry metrics instance.
func GetRetryMetrics() *RetryMetrics {
	retryMetricsOnce.Do(func() {
		retryMetrics = &RetryMetrics{
			attempts: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "retry",
				Name:      "attempts_total",
				Help:      "Total number of retry attempts",
			}),
			exhausted: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "retry",
				Name:      "exhausted_total",
				Help:      "Total number of operations that failed after all retries",
			}),
		}
	})
	return retryMetrics
}

// MustRegister registers the retry collectors with registry.
func (m *RetryMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(m.attempts, m.exhausted)
}

// Init is a no-op; the counters carry no labels.
func (m *RetryMetrics) Init() {}
