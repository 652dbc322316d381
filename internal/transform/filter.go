package transform

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/observability"
)

// FilterStage keeps the records that pass every filter of a rule.
type FilterStage struct {
	logger    observability.Logger
	evaluator *Evaluator
	templates *Engine
}

// FilterOption is a functional option for the filter stage.
type FilterOption func(*FilterStage)

// WithFilterLogger sets the logger.
func WithFilterLogger(logger observability.Logger) FilterOption {
	return func(s *FilterStage) {
		s.logger = logger
	}
}

// NewFilterStage creates a filter stage. Expression filters run on
// evaluator and template filters on templates.
func NewFilterStage(evaluator *Evaluator, templates *Engine, opts ...FilterOption) *FilterStage {
	s := &FilterStage{
		logger:    observability.NopLogger(),
		evaluator: evaluator,
		templates: templates,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = observability.NopLogger()
	}
	return s
}

// Apply filters data. A list is filtered element-wise, keeping order. Any
// other value is treated as a single record and returned, or nil when it
// does not pass. root is the unfiltered document exposed to expressions as
// root; nil means each record is its own root.
//
// Filters are combined with AND and evaluated in order, stopping at the
// first one a record fails. A failing filter marked stop_on_fail aborts
// with a *FilterAbortError.
func (s *FilterStage) Apply(
	ctx context.Context,
	data interface{},
	filters []config.FilterSpec,
	root interface{},
) (interface{}, error) {
	if len(filters) == 0 {
		return data, nil
	}

	start := time.Now()
	defer func() {
		GetTransformMetrics().ObserveStage("filter", time.Since(start))
	}()

	records, isList := data.([]interface{})
	if !isList {
		records = []interface{}{data}
	}

	kept := make([]interface{}, 0, len(records))
	for i, record := range records {
		pass, err := s.passes(ctx, i, record, filters, root)
		if err != nil {
			return nil, err
		}
		if pass {
			kept = append(kept, record)
		}
	}

	if isList {
		return kept, nil
	}
	if len(kept) == 0 {
		return nil, nil
	}
	return kept[0], nil
}

func (s *FilterStage) passes(
	ctx context.Context,
	index int,
	record interface{},
	filters []config.FilterSpec,
	root interface{},
) (bool, error) {
	for _, f := range filters {
		if s.evaluate(ctx, record, f, root) {
			GetTransformMetrics().RecordFilter("pass")
			continue
		}
		GetTransformMetrics().RecordFilter("fail")
		if f.StopOnFail {
			s.logger.Info("stop-on-fail filter blocked record",
				observability.String("label", f.Label),
				observability.Int("record_index", index))
			return false, &FilterAbortError{Label: f.Label, RecordIndex: index}
		}
		return false, nil
	}
	return true, nil
}

func (s *FilterStage) evaluate(ctx context.Context, record interface{}, f config.FilterSpec, root interface{}) bool {
	if strings.TrimSpace(f.Expression) == "" {
		return true
	}
	if root == nil {
		root = record
	}

	mode := strings.ToLower(strings.TrimSpace(f.Mode))
	switch mode {
	case "", config.FilterModeExpression, config.FilterModeScript, config.FilterModeJS:
		if s.evaluator == nil {
			return true
		}
		ok, err := s.evaluator.EvalBool(ctx, f.Expression, map[string]interface{}{
			VarRecord: record,
			VarRow:    record,
			VarItem:   record,
			VarData:   record,
			VarRoot:   root,
		})
		if err != nil {
			s.reportEvalError(f, mode, err)
			return false
		}
		return ok

	case config.FilterModeTemplate, config.FilterModeHandlebars:
		if s.templates == nil {
			return true
		}
		out, err := s.templates.RenderString(f.Expression, map[string]interface{}{
			VarRecord: record,
			VarRoot:   root,
		})
		if err != nil {
			s.reportEvalError(f, mode, err)
			return false
		}
		return out == "true"

	default:
		return true
	}
}

func (s *FilterStage) reportEvalError(f config.FilterSpec, mode string, err error) {
	evalErr := &FilterEvaluationError{
		Label:      f.Label,
		Mode:       mode,
		Expression: f.Expression,
		Err:        err,
	}
	kind := "eval"
	if errors.Is(err, ErrTemplateRender) {
		kind = "template"
	}
	GetTransformMetrics().RecordError("filter", kind)
	s.logger.Warn("filter evaluation failed, record excluded",
		observability.String("label", f.Label),
		observability.Error(evalErr))
}
