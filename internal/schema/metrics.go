package schema

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SchemaMetrics holds Prometheus metrics for schema resolution.
type SchemaMetrics struct {
	resolveTotal  *prometheus.CounterVec
	compiledTotal *prometheus.CounterVec
}

var (
	schemaMetricsInstance *SchemaMetrics
	schemaMetricsOnce     sync.Once
)

// GetSchemaMetrics returns the singleton schema metrics instance.
func GetSchemaMetrics() *SchemaMetrics {
	schemaMetricsOnce.Do(func() {
		schemaMetricsInstance = newSchemaMetrics()
	})
	return schemaMetricsInstance
}

// MustRegister registers the schema collectors with registry.
func (m *SchemaMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.resolveTotal,
		m.compiledTotal,
	)
}

// Init pre-initializes label values so the series appear at startup.
func (m *SchemaMetrics) Init() {
	for _, outcome := range []string{"compiled", "expanded", "fallback"} {
		m.resolveTotal.WithLabelValues(outcome)
	}
}

func newSchemaMetrics() *SchemaMetrics {
	return &SchemaMetrics{
		resolveTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "schema",
				Name:      "resolutions_total",
				Help:      "Total number of schema-referencing rules resolved, by outcome",
			},
			[]string{"outcome"},
		),
		compiledTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "schema",
				Name:      "compiled_rules_total",
				Help:      "Total number of rules compiled from schema documents, by type",
			},
			[]string{"type"},
		),
	}
}
