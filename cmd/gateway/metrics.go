package main

import (
	"github.com/vyrodovalexey/avaxform/internal/cache"
	"github.com/vyrodovalexey/avaxform/internal/circuitbreaker"
	"github.com/vyrodovalexey/avaxform/internal/encoding"
	"github.com/vyrodovalexey/avaxform/internal/gateway/server/http/middleware"
	"github.com/vyrodovalexey/avaxform/internal/observability"
	"github.com/vyrodovalexey/avaxform/internal/pipeline"
	"github.com/vyrodovalexey/avaxform/internal/remote"
	"github.com/vyrodovalexey/avaxform/internal/retry"
	"github.com/vyrodovalexey/avaxform/internal/schema"
	"github.com/vyrodovalexey/avaxform/internal/transform"
	"github.com/vyrodovalexey/avaxform/internal/validation"
)

// newMetricsRegistry registers every package metric family with a
// dedicated registry. The singletons also auto-register with the default
// registry, but /metrics is served from this one.
func newMetricsRegistry() *observability.Registry {
	registry := observability.NewRegistry("gateway",
		pipeline.GetPipelineMetrics(),
		transform.GetTransformMetrics(),
		validation.GetValidationMetrics(),
		encoding.GetEncodingMetrics(),
		schema.GetSchemaMetrics(),
		middleware.GetHTTPMetrics(),
	)

	prom := registry.Prometheus()
	cacheMetrics := cache.GetCacheMetrics()
	cacheMetrics.MustRegister(prom)
	cacheMetrics.Init(schema.CacheName)
	circuitbreaker.GetBreakerMetrics().MustRegister(prom)
	remote.GetRemoteMetrics().MustRegister(prom)
	retry.GetRetryMetrics().MustRegister(prom)

	return registry
}
