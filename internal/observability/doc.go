// Package observability provides logging, metrics, and tracing for the
// transformation gateway.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("rule applied",
//	    observability.String("rule", "orders"),
//	    observability.Int("records", 12),
//	)
//
// # Metrics
//
// Each domain package owns a singleton metric family registered with
// promauto. The Registry type collects them on a dedicated Prometheus
// registry served on /metrics.
//
// # Tracing
//
// NewTracer installs an OpenTelemetry SDK provider, exporting over OTLP
// gRPC when an endpoint is configured.
package observability
