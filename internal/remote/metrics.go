package remote

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RemoteMetrics holds Prometheus metrics for remote fetches.
type RemoteMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var (
	remoteMetricsInstance *RemoteMetrics
	remoteMetricsOnce     sync.Once
)

// GetRemoteMetrics returns the singleton remote metrics instance.
func GetRemoteMetrics() *RemoteMetrics {
	remoteMetricsOnce.Do(func() {
		remoteMetricsInstance = newRemoteMetrics()
	})
	return remoteMetricsInstance
}

// MustRegister registers the remote collectors with registry.
func (m *RemoteMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
	)
}

func (m *RemoteMetrics) observe(client, result string, d time.Duration) {
	m.requestsTotal.WithLabelValues(client, result).Inc()
	m.requestDuration.WithLabelValues(client).Observe(d.Seconds())
}

func newRemoteMetrics() *RemoteMetrics {
	return &RemoteMetrics{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "remote",
				Name:      "requests_total",
				Help:      "Total number of remote document fetches by result",
			},
			[]string{"client", "result"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gateway",
				Subsystem: "remote",
				Name:      "request_duration_seconds",
				Help:      "Duration of remote document fetches",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"client"},
		),
	}
}
