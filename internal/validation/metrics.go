package validation

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ValidationMetrics contains Prometheus metrics for validation runs.
type ValidationMetrics struct {
	runsTotal    *prometheus.CounterVec
	recordsTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	customErrors prometheus.Counter
	runDuration  prometheus.Histogram
}

var (
	validationMetricsInstance *ValidationMetrics
	validationMetricsOnce     sync.Once
)

// GetValidationMetrics returns the singleton validation metrics instance.
func GetValidationMetrics() *ValidationMetrics {
	validationMetricsOnce.Do(func() {
		validationMetricsInstance = &ValidationMetrics{
			runsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "validation",
					Name:      "runs_total",
					Help:      "Total number of validation runs by policy and outcome",
				},
				[]string{"policy", "result"},
			),
			recordsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "validation",
					Name:      "records_total",
					Help:      "Total number of validated records by outcome",
				},
				[]string{"result"},
			),
			errorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "validation",
					Name:      "field_errors_total",
					Help:      "Total number of field validation errors by rule kind",
				},
				[]string{"kind"},
			),
			customErrors: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "validation",
					Name:      "custom_expression_errors_total",
					Help:      "Total number of custom rule expressions that failed to evaluate",
				},
			),
			runDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "gateway",
					Subsystem: "validation",
					Name:      "run_duration_seconds",
					Help:      "Duration of validation runs in seconds",
					Buckets: []float64{
						.0001, .0005, .001, .005,
						.01, .025, .05, .1, .5,
					},
				},
			),
		}
	})
	return validationMetricsInstance
}

// MustRegister registers all validation metric collectors with the given
// Prometheus registry.
func (m *ValidationMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.runsTotal,
		m.recordsTotal,
		m.errorsTotal,
		m.customErrors,
		m.runDuration,
	)
}

// Init pre-initializes common label combinations with zero values.
func (m *ValidationMetrics) Init() {
	for _, policy := range []string{"reject", "filter", "warn"} {
		for _, result := range []string{"valid", "invalid"} {
			m.runsTotal.WithLabelValues(policy, result)
		}
	}
	m.recordsTotal.WithLabelValues("kept")
	m.recordsTotal.WithLabelValues("dropped")
}

func (m *ValidationMetrics) observe(policy string, r *Report, d time.Duration) {
	result := "valid"
	if len(r.Errors) > 0 {
		result = "invalid"
	}
	m.runsTotal.WithLabelValues(policy, result).Inc()
	m.recordsTotal.WithLabelValues("kept").Add(float64(r.ValidRecords))
	m.recordsTotal.WithLabelValues("dropped").Add(float64(r.InvalidRecords))
	for _, fe := range r.Errors {
		m.errorsTotal.WithLabelValues(fe.Kind).Inc()
	}
	m.runDuration.Observe(d.Seconds())
}
