package transform

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TransformMetrics contains Prometheus metrics for the record stages.
type TransformMetrics struct {
	stageDuration *prometheus.HistogramVec
	filterTotal   *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
}

var (
	transformMetricsInstance *TransformMetrics
	transformMetricsOnce     sync.Once
)

// GetTransformMetrics returns the singleton transform metrics instance.
func GetTransformMetrics() *TransformMetrics {
	transformMetricsOnce.Do(func() {
		transformMetricsInstance = &TransformMetrics{
			stageDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "gateway",
					Subsystem: "transform",
					Name:      "stage_duration_seconds",
					Help:      "Duration of transform stages in seconds",
					Buckets: []float64{
						.0001, .0005, .001, .005,
						.01, .025, .05, .1, .5,
					},
				},
				[]string{"stage"},
			),
			filterTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "transform",
					Name:      "filter_evaluations_total",
					Help:      "Total number of filter evaluations by result",
				},
				[]string{"result"},
			),
			errorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "transform",
					Name:      "errors_total",
					Help:      "Total number of transform errors",
				},
				[]string{"stage", "error_type"},
			),
		}
	})
	return transformMetricsInstance
}

// MustRegister registers all transform metric collectors with the given
// Prometheus registry.
func (m *TransformMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.stageDuration,
		m.filterTotal,
		m.errorsTotal,
	)
}

// Init pre-initializes common label combinations with zero values so that
// metrics appear in /metrics output immediately after startup.
func (m *TransformMetrics) Init() {
	for _, stage := range []string{"filter", "mapping", "template"} {
		m.stageDuration.WithLabelValues(stage)
	}
	for _, result := range []string{"pass", "fail"} {
		m.filterTotal.WithLabelValues(result)
	}
	m.errorsTotal.WithLabelValues("filter", "eval")
	m.errorsTotal.WithLabelValues("filter", "template")
	m.errorsTotal.WithLabelValues("template", "parse")
	m.errorsTotal.WithLabelValues("template", "exec")
}

// ObserveStage records the duration of a stage.
func (m *TransformMetrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordFilter records one filter evaluation.
func (m *TransformMetrics) RecordFilter(result string) {
	m.filterTotal.WithLabelValues(result).Inc()
}

// RecordError records a transform error.
func (m *TransformMetrics) RecordError(stage, errorType string) {
	m.errorsTotal.WithLabelValues(stage, errorType).Inc()
}
