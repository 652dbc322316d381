package validation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/observability"
	"github.com/vyrodovalexey/avaxform/internal/transform"
)

// WarningsKey is the record key that carries a record's errors under the
// warn policy.
const WarningsKey = "_validationWarnings"

// ValueKey holds a non-map record when it is wrapped to carry warnings.
const ValueKey = "value"

// Options controls one validation run.
type Options struct {
	// StrictMode turns unknown rule kinds and invalid patterns into errors.
	StrictMode bool

	// OnFail is the failure policy. Empty means reject.
	OnFail config.OnFailPolicy
}

// FieldError is one failed rule for one record.
type FieldError struct {
	RecordIndex int    `json:"record_index"`
	Field       string `json:"field"`
	Message     string `json:"message"`
	Kind        string `json:"kind"`
}

// Report is the outcome of a validation run.
type Report struct {
	Valid          bool         `json:"valid"`
	Errors         []FieldError `json:"errors"`
	TotalRecords   int          `json:"total_records"`
	ValidRecords   int          `json:"valid_records"`
	InvalidRecords int          `json:"invalid_records"`

	// Data is the record set after the policy was applied: a list when the
	// input was a list, otherwise the single record or nil if it was
	// dropped.
	Data interface{} `json:"-"`
}

// Engine validates records. It is safe for concurrent use.
type Engine struct {
	logger    observability.Logger
	evaluator *transform.Evaluator
	patterns  *patternCache
}

// Option is a functional option for the engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEvaluator sets the evaluator for custom rules.
func WithEvaluator(evaluator *transform.Evaluator) Option {
	return func(e *Engine) {
		e.evaluator = evaluator
	}
}

// WithPatternCacheSize bounds the number of compiled patterns kept.
func WithPatternCacheSize(size int) Option {
	return func(e *Engine) {
		e.patterns.max = size
	}
}

// NewEngine creates a validation engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:   observability.NopLogger(),
		patterns: newPatternCache(defaultPatternCacheSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = observability.NopLogger()
	}
	if e.evaluator == nil {
		e.evaluator = transform.MustNewEvaluator(transform.WithEvaluatorLogger(e.logger))
	}
	return e
}

// Validate checks every record of data against rules. A list is validated
// element-wise, anything else as a single record. Record order is kept.
func (e *Engine) Validate(
	ctx context.Context,
	data interface{},
	rules []config.ValidationRule,
	opts Options,
) *Report {
	if len(rules) == 0 {
		return &Report{Valid: true, Errors: []FieldError{}, Data: data}
	}

	start := time.Now()
	policy := opts.OnFail
	if policy == "" {
		policy = config.OnFailReject
	}

	records, isList := data.([]interface{})
	if !isList {
		records = []interface{}{data}
	}

	report := &Report{Errors: []FieldError{}, TotalRecords: len(records)}
	kept := make([]interface{}, 0, len(records))

	for i, record := range records {
		recordErrors := e.validateRecord(ctx, i, record, rules, opts.StrictMode)
		if len(recordErrors) == 0 {
			kept = append(kept, record)
			continue
		}

		report.Errors = append(report.Errors, recordErrors...)
		switch policy {
		case config.OnFailFilter:
		case config.OnFailWarn:
			kept = append(kept, withWarnings(record, recordErrors))
		default:
			kept = append(kept, record)
		}
	}

	report.ValidRecords = len(kept)
	report.InvalidRecords = report.TotalRecords - report.ValidRecords
	report.Valid = policy != config.OnFailReject || len(report.Errors) == 0

	if isList {
		report.Data = kept
	} else if len(kept) > 0 {
		report.Data = kept[0]
	}

	GetValidationMetrics().observe(string(policy), report, time.Since(start))
	return report
}

func (e *Engine) validateRecord(
	ctx context.Context,
	index int,
	record interface{},
	rules []config.ValidationRule,
	strict bool,
) []FieldError {
	var errs []FieldError
	for i := range rules {
		rule := &rules[i]
		if msg, failed := e.ValidateField(ctx, record, rule, strict); failed {
			errs = append(errs, FieldError{
				RecordIndex: index,
				Field:       rule.Field,
				Message:     msg,
				Kind:        normalizeKind(rule.Type),
			})
		}
	}
	return errs
}

// withWarnings returns a copy of a map record carrying its errors. Any
// other record is wrapped as {value: record} first.
func withWarnings(record interface{}, errs []FieldError) interface{} {
	m, ok := record.(map[string]interface{})
	if !ok {
		m = map[string]interface{}{ValueKey: record}
	}

	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	warnings := make([]interface{}, len(errs))
	for i, fe := range errs {
		warnings[i] = map[string]interface{}{
			"record_index": float64(fe.RecordIndex),
			"field":        fe.Field,
			"message":      fe.Message,
			"kind":         fe.Kind,
		}
	}
	out[WarningsKey] = warnings
	return out
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

// patternCache memoizes compiled patterns, including compile failures.
type patternCache struct {
	mu      sync.RWMutex
	entries map[string]patternEntry
	max     int
}

func newPatternCache(size int) *patternCache {
	return &patternCache{entries: make(map[string]patternEntry), max: size}
}
