package encoding

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EncodingMetrics contains Prometheus metrics for codec operations.
type EncodingMetrics struct {
	encodeTotal    *prometheus.CounterVec
	decodeTotal    *prometheus.CounterVec
	decodeDuration *prometheus.HistogramVec
	errorsTotal    *prometheus.CounterVec
}

var (
	encodingMetricsInstance *EncodingMetrics
	encodingMetricsOnce     sync.Once
)

// GetEncodingMetrics returns the singleton encoding metrics instance.
func GetEncodingMetrics() *EncodingMetrics {
	encodingMetricsOnce.Do(func() {
		encodingMetricsInstance = &EncodingMetrics{
			encodeTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "encoding",
					Name:      "encode_total",
					Help:      "Total number of serialize operations",
				},
				[]string{"format", "result"},
			),
			decodeTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "encoding",
					Name:      "decode_total",
					Help:      "Total number of parse operations",
				},
				[]string{"format", "result"},
			),
			decodeDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "gateway",
					Subsystem: "encoding",
					Name:      "decode_duration_seconds",
					Help:      "Duration of parse operations in seconds",
					Buckets: []float64{
						.0001, .0005, .001, .005,
						.01, .025, .05, .1, .5,
					},
				},
				[]string{"format"},
			),
			errorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "encoding",
					Name:      "errors_total",
					Help:      "Total number of codec errors",
				},
				[]string{"format", "error_type"},
			),
		}
	})
	return encodingMetricsInstance
}

// MustRegister registers the encoding collectors with registry, which is
// the one served on /metrics rather than the promauto default.
func (m *EncodingMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.encodeTotal,
		m.decodeTotal,
		m.decodeDuration,
		m.errorsTotal,
	)
}

// Init pre-initializes label combinations so the series are exported
// before the first operation.
func (m *EncodingMetrics) Init() {
	for _, format := range []string{"json", "csv", "xml"} {
		for _, result := range []string{"success", "error"} {
			m.encodeTotal.WithLabelValues(format, result)
			m.decodeTotal.WithLabelValues(format, result)
		}
		m.decodeDuration.WithLabelValues(format)
		m.errorsTotal.WithLabelValues(format, "parse")
		m.errorsTotal.WithLabelValues(format, "serialize")
	}
}
