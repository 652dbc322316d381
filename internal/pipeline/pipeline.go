package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/encoding"
	"github.com/vyrodovalexey/avaxform/internal/observability"
	"github.com/vyrodovalexey/avaxform/internal/remote"
	"github.com/vyrodovalexey/avaxform/internal/schema"
	"github.com/vyrodovalexey/avaxform/internal/transform"
	"github.com/vyrodovalexey/avaxform/internal/util"
	"github.com/vyrodovalexey/avaxform/internal/validation"
)

// pipelineTracerName is the OpenTelemetry tracer name for pipeline runs.
const pipelineTracerName = "avaxform/pipeline"

// Run results used as metric labels.
const (
	resultSuccess          = "success"
	resultParseError       = "parse_error"
	resultFilterAbort      = "filter_abort"
	resultValidationFailed = "validation_failed"
	resultSourceError      = "source_error"
	resultError            = "error"
)

// Orchestrator runs transformation rules. It holds no per-run state and is
// safe for concurrent use.
type Orchestrator struct {
	logger    observability.Logger
	codecs    *encoding.Factory
	evaluator *transform.Evaluator
	templates *transform.Engine
	filters   *transform.FilterStage
	mapper    *transform.Mapper
	validator *validation.Engine
	resolver  *schema.Resolver
	sources   remote.Getter
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger shared by every stage.
func WithLogger(logger observability.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCodecs sets the format codecs.
func WithCodecs(codecs *encoding.Factory) Option {
	return func(o *Orchestrator) {
		o.codecs = codecs
	}
}

// WithTemplateEngine sets the template engine, for example one with a
// custom helper registry.
func WithTemplateEngine(engine *transform.Engine) Option {
	return func(o *Orchestrator) {
		o.templates = engine
	}
}

// WithEvaluator sets the expression evaluator used by filters and custom
// validation rules.
func WithEvaluator(evaluator *transform.Evaluator) Option {
	return func(o *Orchestrator) {
		o.evaluator = evaluator
	}
}

// WithSchemaResolver enables schema enrichment of validation rules.
func WithSchemaResolver(resolver *schema.Resolver) Option {
	return func(o *Orchestrator) {
		o.resolver = resolver
	}
}

// WithSourceGetter enables remote source payloads.
func WithSourceGetter(getter remote.Getter) Option {
	return func(o *Orchestrator) {
		o.sources = getter
	}
}

// New creates an orchestrator. Stages not set by options get defaults.
func New(opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(o)
	}

	if o.codecs == nil {
		o.codecs = encoding.NewFactory(o.logger)
	}
	if o.evaluator == nil {
		evaluator, err := transform.NewEvaluator(transform.WithEvaluatorLogger(o.logger))
		if err != nil {
			return nil, fmt.Errorf("create expression evaluator: %w", err)
		}
		o.evaluator = evaluator
	}
	if o.templates == nil {
		o.templates = transform.NewEngine(nil, transform.WithEngineLogger(o.logger))
	}

	o.filters = transform.NewFilterStage(o.evaluator, o.templates, transform.WithFilterLogger(o.logger))
	o.mapper = transform.NewMapper(o.templates, transform.WithMapperLogger(o.logger))
	o.validator = validation.NewEngine(
		validation.WithLogger(o.logger),
		validation.WithEvaluator(o.evaluator),
	)
	return o, nil
}

// invocation holds per-call overrides.
type invocation struct {
	sourceFormat string
	targetFormat string
	sourceURL    string
}

// TransformOption overrides rule settings for one call.
type TransformOption func(*invocation)

// WithSourceFormat overrides the rule's source format.
func WithSourceFormat(format string) TransformOption {
	return func(inv *invocation) {
		inv.sourceFormat = format
	}
}

// WithTargetFormat overrides the rule's target format.
func WithTargetFormat(format string) TransformOption {
	return func(inv *invocation) {
		inv.targetFormat = format
	}
}

// WithSourceURL overrides the rule's test source URL.
func WithSourceURL(url string) TransformOption {
	return func(inv *invocation) {
		inv.sourceURL = url
	}
}

// Transform runs rule over source. A nil or empty source falls back to the
// rule's sample input, then to its remote test source, then to an empty
// document.
func (o *Orchestrator) Transform(
	ctx context.Context,
	source interface{},
	rule *config.TransformationRule,
	opts ...TransformOption,
) (*Result, error) {
	if rule == nil {
		return nil, fmt.Errorf("%w: %w", util.ErrInvalidInput, ErrMissingRule)
	}

	inv := &invocation{}
	for _, opt := range opts {
		opt(inv)
	}
	sourceFormat := normalizeFormat(inv.sourceFormat, rule.SourceFormatOrDefault())
	targetFormat := normalizeFormat(inv.targetFormat, rule.TargetFormatOrDefault())

	ctx, span := otel.Tracer(pipelineTracerName).Start(ctx, "pipeline.Transform",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("rule.name", rule.Name),
			attribute.String("pipeline.source_format", sourceFormat),
			attribute.String("pipeline.target_format", targetFormat),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := o.run(ctx, source, rule, inv, sourceFormat, targetFormat)
	outcome := resultLabel(err)
	GetPipelineMetrics().observe(outcome, sourceFormat, targetFormat, time.Since(start))

	logger := o.logger.WithContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Debug("transformation failed",
			observability.String("rule", rule.Name),
			observability.String("result", outcome),
			observability.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("pipeline.filters_applied", result.Meta.FiltersApplied),
		attribute.Bool("pipeline.validation_passed", result.Meta.ValidationPassed),
	)
	logger.Debug("transformation completed",
		observability.String("rule", rule.Name),
		observability.String("source_format", sourceFormat),
		observability.String("target_format", targetFormat),
		observability.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (o *Orchestrator) run(
	ctx context.Context,
	source interface{},
	rule *config.TransformationRule,
	inv *invocation,
	sourceFormat, targetFormat string,
) (*Result, error) {
	metrics := GetPipelineMetrics()

	// Reject unknown formats before any remote source is fetched.
	if _, err := o.codecs.Codec(sourceFormat); err != nil {
		return nil, err
	}
	if _, err := o.codecs.Codec(targetFormat); err != nil {
		return nil, err
	}

	input, err := o.resolveSource(ctx, source, rule, inv, sourceFormat)
	if err != nil {
		return nil, err
	}

	parsed, err := o.codecs.Parse(input, sourceFormat)
	if err != nil {
		return nil, err
	}

	data, root := Unwrap(parsed)
	metrics.recordsTotal.WithLabelValues("input").Add(float64(countRecords(data)))

	if len(rule.FilterConfig) > 0 {
		data, err = o.filters.Apply(ctx, data, rule.FilterConfig, root)
		if err != nil {
			return nil, err
		}
	}

	if len(rule.MappingConfig) > 0 {
		data, err = o.mapper.Apply(data, rule.MappingConfig)
		if err != nil {
			return nil, fmt.Errorf("mapping: %w", err)
		}
	}

	if rule.TemplateConfig != "" {
		data, err = o.templates.Render(data, string(rule.TemplateConfig))
		if err != nil {
			return nil, fmt.Errorf("template: %w", err)
		}
	}

	plan := PlanValidation(rule)
	var report *validation.Report
	if plan.Enabled() {
		rules := o.resolver.Resolve(ctx, plan.Rules)
		report = o.validator.Validate(ctx, data, rules, validation.Options{
			StrictMode: plan.StrictMode,
			OnFail:     plan.OnFail,
		})
		metrics.validationErrors.Add(float64(len(report.Errors)))

		if !report.Valid && plan.OnFail == config.OnFailReject {
			return nil, &ValidationFailedError{Report: report}
		}
		data = report.Data
	}

	text, err := o.codecs.Serialize(data, targetFormat)
	if err != nil {
		return nil, err
	}
	metrics.recordsTotal.WithLabelValues("output").Add(float64(countRecords(data)))

	return &Result{
		TargetFormat: targetFormat,
		Output:       data,
		OutputText:   text,
		Validation:   report,
		Meta: Meta{
			SourceFormat:      sourceFormat,
			TargetFormat:      targetFormat,
			FiltersApplied:    len(rule.FilterConfig),
			UsedTemplate:      rule.TemplateConfig != "",
			UsedMapping:       len(rule.MappingConfig) > 0,
			ValidationApplied: plan.Enabled(),
			ValidationPassed:  report == nil || report.Valid,
		},
	}, nil
}

func normalizeFormat(override, fallback string) string {
	if f := strings.ToLower(strings.TrimSpace(override)); f != "" {
		return f
	}
	return fallback
}

func countRecords(data interface{}) int {
	switch v := data.(type) {
	case nil:
		return 0
	case []interface{}:
		return len(v)
	default:
		return 1
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return resultSuccess
	case errors.Is(err, encoding.ErrParse), errors.Is(err, encoding.ErrUnsupportedFormat):
		return resultParseError
	case errors.Is(err, transform.ErrPipelineAbort):
		return resultFilterAbort
	case errors.Is(err, ErrValidationFailed):
		return resultValidationFailed
	case errors.Is(err, ErrSourceFetch):
		return resultSourceError
	default:
		return resultError
	}
}
