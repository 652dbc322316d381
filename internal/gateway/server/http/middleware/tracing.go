package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avaxform/internal/observability"
)

const (
	tracerName = "avaxform/http"
	spanKey    = "otel-span"
)

// TracingConfig configures the tracing middleware. Nil provider and
// propagators fall back to the otel globals.
type TracingConfig struct {
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator
	SkipPaths      []string
}

// Tracing starts a server span per request, except for skipPaths.
func Tracing(skipPaths ...string) gin.HandlerFunc {
	return TracingWithConfig(TracingConfig{SkipPaths: skipPaths})
}

// TracingWithConfig is Tracing with an explicit provider and propagators.
//
// Spans are named "METHOD route". Requests for a named rule carry the rule
// name as xform.rule; responses of 500 and above mark the span failed.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	provider := cfg.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	propagators := cfg.Propagators
	if propagators == nil {
		propagators = otel.GetTextMapPropagator()
	}
	tracer := provider.Tracer(tracerName)

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", routeOf(c)),
			attribute.String("http.target", c.Request.URL.Path),
		}
		if rule := c.Param("name"); rule != "" {
			attrs = append(attrs, attribute.String("xform.rule", rule))
		}
		if id := GetRequestID(c); id != "" {
			attrs = append(attrs, attribute.String("request.id", id))
		}

		ctx := propagators.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+routeOf(c),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		c.Set(spanKey, span)
		c.Request = c.Request.WithContext(observability.ContextWithSpanIDs(ctx, span))

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int("http.response_size", c.Writer.Size()),
		)
		if len(c.Errors) > 0 {
			span.RecordError(errors.New(c.Errors.String()))
		}
		if status >= 500 {
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
		}
	}
}

// GetSpan returns the request span, nil outside the tracing middleware.
func GetSpan(c *gin.Context) trace.Span {
	v, ok := c.Get(spanKey)
	if !ok {
		return nil
	}
	span, _ := v.(trace.Span)
	return span
}

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
