package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registerer is implemented by the per-package metric singletons.
type Registerer interface {
	MustRegister(registry *prometheus.Registry)
	Init()
}

// Registry is the dedicated Prometheus registry served on /metrics.
type Registry struct {
	registry  *prometheus.Registry
	buildInfo *prometheus.GaugeVec
}

// NewRegistry creates a registry with the Go and process collectors and
// the given package metric families.
func NewRegistry(namespace string, families ...Registerer) *Registry {
	if namespace == "" {
		namespace = "gateway"
	}

	r := &Registry{
		registry: prometheus.NewRegistry(),
		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "build_info",
				Help:      "Build information for the gateway",
			},
			[]string{"version", "commit", "build_time"},
		),
	}

	r.registry.MustRegister(
		r.buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, f := range families {
		f.MustRegister(r.registry)
		f.Init()
	}

	return r
}

// SetBuildInfo sets the build information metric.
func (r *Registry) SetBuildInfo(version, commit, buildTime string) {
	r.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}
