package schema

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/observability"
)

// schemaTracerName is the OpenTelemetry tracer name for schema resolution.
const schemaTracerName = "avaxform/schema"

// Resolver enriches validation rules that reference a schema URI.
type Resolver struct {
	fetcher Fetcher
	logger  observability.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(logger observability.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver that reads documents through fetcher.
func NewResolver(fetcher Fetcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fetcher: fetcher,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns rules with every schema reference compiled and overlaid
// by the values the user set explicitly. A rule without a field expands
// into one rule per field of its document. When a document cannot be
// fetched the rule is kept as given.
func (r *Resolver) Resolve(ctx context.Context, rules []config.ValidationRule) []config.ValidationRule {
	if r == nil || r.fetcher == nil {
		return rules
	}

	ctx, span := otel.Tracer(schemaTracerName).Start(ctx, "schema.Resolve",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("schema.rules", len(rules))),
	)
	defer span.End()

	metrics := GetSchemaMetrics()
	resolved := make([]config.ValidationRule, 0, len(rules))

	for i := range rules {
		rule := rules[i]
		uri := strings.TrimSpace(rule.SchemaURI)
		if uri == "" {
			resolved = append(resolved, rule)
			continue
		}

		doc, err := r.fetcher.Fetch(ctx, uri)
		if err != nil {
			r.logger.Warn("schema unavailable, using rule as given",
				observability.String("field", rule.Field),
				observability.String("schema_uri", uri),
				observability.Error(err),
			)
			metrics.resolveTotal.WithLabelValues("fallback").Inc()
			resolved = append(resolved, rule)
			continue
		}

		if strings.TrimSpace(rule.Field) == "" {
			expanded := ExpandDocument(doc, uri)
			if len(expanded) == 0 {
				metrics.resolveTotal.WithLabelValues("fallback").Inc()
				resolved = append(resolved, rule)
				continue
			}
			for _, compiled := range expanded {
				metrics.compiledTotal.WithLabelValues(compiled.Type).Inc()
				resolved = append(resolved, Overlay(compiled, rule))
			}
			metrics.resolveTotal.WithLabelValues("expanded").Inc()
			continue
		}

		compiled := CompileDocument(doc, rule.Field, uri)
		metrics.compiledTotal.WithLabelValues(compiled.Type).Inc()
		metrics.resolveTotal.WithLabelValues("compiled").Inc()
		resolved = append(resolved, Overlay(compiled, rule))
	}

	span.SetAttributes(attribute.Int("schema.resolved_rules", len(resolved)))
	return resolved
}

// Compile fetches the document at uri and compiles it for field, or for
// every field of the document when field is empty.
func (r *Resolver) Compile(ctx context.Context, uri, field string) ([]config.ValidationRule, error) {
	doc, err := r.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	if field == "" {
		return ExpandDocument(doc, uri), nil
	}
	return []config.ValidationRule{CompileDocument(doc, field, uri)}, nil
}

// Overlay returns compiled with every value set in user taking precedence.
func Overlay(compiled, user config.ValidationRule) config.ValidationRule {
	out := compiled
	if user.Field != "" {
		out.Field = user.Field
	}
	if user.Type != "" {
		out.Type = user.Type
	}
	if user.Pattern != "" {
		out.Pattern = user.Pattern
	}
	if user.Flags != "" {
		out.Flags = user.Flags
	}
	if user.Min != nil {
		out.Min = user.Min
	}
	if user.Max != nil {
		out.Max = user.Max
	}
	if len(user.Values) > 0 {
		out.Values = user.Values
	}
	if user.Expression != "" {
		out.Expression = user.Expression
	}
	if user.Message != "" {
		out.Message = user.Message
	}
	if user.SchemaURI != "" {
		out.SchemaURI = user.SchemaURI
	}
	if user.ValidatorName != "" {
		out.ValidatorName = user.ValidatorName
	}
	if user.PropertyOriginal != "" {
		out.PropertyOriginal = user.PropertyOriginal
	}
	return out
}
