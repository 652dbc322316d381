package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CacheMetrics holds Prometheus metrics for cache operations.
type CacheMetrics struct {
	hitsTotal       *prometheus.CounterVec
	missesTotal     *prometheus.CounterVec
	sharedTotal     *prometheus.CounterVec
	loadErrorsTotal *prometheus.CounterVec
	sizeGauge       *prometheus.GaugeVec
	loadDuration    *prometheus.HistogramVec
}

var (
	cacheMetricsInstance *CacheMetrics
	cacheMetricsOnce     sync.Once
)

// GetCacheMetrics returns the singleton cache metrics instance.
func GetCacheMetrics() *CacheMetrics {
	cacheMetricsOnce.Do(func() {
		cacheMetricsInstance = newCacheMetrics()
	})
	return cacheMetricsInstance
}

// MustRegister registers all cache metric collectors with the given
// Prometheus registry. This is needed because promauto registers
// metrics with the default global registry, but the gateway serves
// /metrics from a custom registry.
func (m *CacheMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.hitsTotal,
		m.missesTotal,
		m.sharedTotal,
		m.loadErrorsTotal,
		m.sizeGauge,
		m.loadDuration,
	)
}

// Init pre-initializes the label values of the named caches with zero
// values so that metrics appear in /metrics output immediately after
// startup.
func (m *CacheMetrics) Init(names ...string) {
	for _, name := range names {
		m.hitsTotal.WithLabelValues(name)
		m.missesTotal.WithLabelValues(name)
		m.sharedTotal.WithLabelValues(name)
		m.loadErrorsTotal.WithLabelValues(name)
		m.sizeGauge.WithLabelValues(name)
		m.loadDuration.WithLabelValues(name)
	}
}

func newCacheMetrics() *CacheMetrics {
	return &CacheMetrics{
		hitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "cache",
				Name:      "hits_total",
				Help: "Total number of " +
					"cache hits",
			},
			[]string{"cache"},
		),
		missesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "cache",
				Name:      "misses_total",
				Help: "Total number of " +
					"cache misses",
			},
			[]string{"cache"},
		),
		sharedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "cache",
				Name:      "shared_loads_total",
				Help: "Total number of misses " +
					"that joined an in-flight load",
			},
			[]string{"cache"},
		),
		loadErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "cache",
				Name:      "load_errors_total",
				Help: "Total number of " +
					"failed cache loads",
			},
			[]string{"cache"},
		),
		sizeGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gateway",
				Subsystem: "cache",
				Name:      "size",
				Help: "Current number of " +
					"items in cache",
			},
			[]string{"cache"},
		),
		loadDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gateway",
				Subsystem: "cache",
				Name: "load_duration" +
					"_seconds",
				Help: "Duration of cache " +
					"loads",
				Buckets: []float64{
					.001, .005, .01, .05,
					.1, .25, .5, 1, 2.5, 5, 10,
				},
			},
			[]string{"cache"},
		),
	}
}
