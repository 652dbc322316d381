package pipeline

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds Prometheus metrics for transformation runs.
type PipelineMetrics struct {
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	validationErrors prometheus.Counter
	recordsTotal     *prometheus.CounterVec
}

var (
	pipelineMetricsInstance *PipelineMetrics
	pipelineMetricsOnce     sync.Once
)

// GetPipelineMetrics returns the singleton pipeline metrics instance.
func GetPipelineMetrics() *PipelineMetrics {
	pipelineMetricsOnce.Do(func() {
		pipelineMetricsInstance = newPipelineMetrics()
	})
	return pipelineMetricsInstance
}

// MustRegister registers the pipeline collectors with registry.
func (m *PipelineMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.validationErrors,
		m.recordsTotal,
	)
}

// Init pre-initializes the result label values.
func (m *PipelineMetrics) Init() {
	for _, result := range []string{
		resultSuccess, resultParseError, resultFilterAbort,
		resultValidationFailed, resultSourceError, resultError,
	} {
		m.runsTotal.WithLabelValues(result)
	}
}

func (m *PipelineMetrics) observe(result, sourceFormat, targetFormat string, d time.Duration) {
	m.runsTotal.WithLabelValues(result).Inc()
	m.runDuration.WithLabelValues(sourceFormat, targetFormat).Observe(d.Seconds())
}

func newPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Total number of transformation runs by result",
			},
			[]string{"result"},
		),
		runDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gateway",
				Subsystem: "pipeline",
				Name:      "run_duration_seconds",
				Help:      "Duration of transformation runs",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"source_format", "target_format"},
		),
		validationErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "pipeline",
				Name:      "validation_errors_total",
				Help:      "Total number of field validation errors reported by runs",
			},
		),
		recordsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "pipeline",
				Name:      "records_total",
				Help:      "Total number of records seen by runs, at input and output",
			},
			[]string{"stage"},
		),
	}
}
