package transform

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/vyrodovalexey/avaxform/internal/observability"
)

// Variables bound when evaluating expressions. The record aliases and root
// are set by filters, value and record by custom validation rules.
const (
	VarRecord = "record"
	VarRow    = "row"
	VarItem   = "item"
	VarData   = "data"
	VarRoot   = "root"
	VarValue  = "value"
)

const (
	defaultCostLimit          = 100000
	defaultMaxCachedPrograms  = 1000
	defaultInterruptFrequency = 100
)

// Evaluator compiles and runs boolean CEL expressions over generic values.
// Compiled programs are cached by expression text.
type Evaluator struct {
	logger    observability.Logger
	env       *cel.Env
	costLimit uint64
	maxCached int

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// EvaluatorOption is a functional option for the evaluator.
type EvaluatorOption func(*Evaluator)

// WithEvaluatorLogger sets the logger.
func WithEvaluatorLogger(logger observability.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithCostLimit bounds the runtime cost of a single evaluation.
func WithCostLimit(limit uint64) EvaluatorOption {
	return func(e *Evaluator) {
		e.costLimit = limit
	}
}

// NewEvaluator creates an evaluator with the record, row, item, data, root
// and value variables declared as dynamic values.
func NewEvaluator(opts ...EvaluatorOption) (*Evaluator, error) {
	e := &Evaluator{
		logger:    observability.NopLogger(),
		costLimit: defaultCostLimit,
		maxCached: defaultMaxCachedPrograms,
		programs:  make(map[string]cel.Program),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = observability.NopLogger()
	}

	envOpts := []cel.EnvOption{
		cel.Variable(VarRecord, cel.DynType),
		cel.Variable(VarRow, cel.DynType),
		cel.Variable(VarItem, cel.DynType),
		cel.Variable(VarData, cel.DynType),
		cel.Variable(VarRoot, cel.DynType),
		cel.Variable(VarValue, cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	}
	env, err := cel.NewEnv(append(envOpts, relationalOptions()...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	e.env = env

	return e, nil
}

// MustNewEvaluator is like NewEvaluator but panics on error.
func MustNewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e, err := NewEvaluator(opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// EvalBool evaluates expression with vars bound. Compile errors, runtime
// errors and non-boolean results are returned as errors wrapping
// ErrExpression.
func (e *Evaluator) EvalBool(ctx context.Context, expression string, vars map[string]interface{}) (bool, error) {
	prg, err := e.program(expression)
	if err != nil {
		return false, err
	}

	out, _, err := prg.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrExpression, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression returned %s, expected bool", ErrExpression, out.Type().TypeName())
	}
	return result, nil
}

func (e *Evaluator) program(expression string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(normalizeExpression(expression))
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrExpression, iss.Err())
	}

	prg, err := e.env.Program(ast,
		cel.CostLimit(e.costLimit),
		cel.InterruptCheckFrequency(defaultInterruptFrequency),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExpression, err)
	}

	e.mu.Lock()
	if len(e.programs) < e.maxCached {
		e.programs[expression] = prg
	}
	e.mu.Unlock()

	e.logger.Debug("compiled expression", observability.String("expression", expression))
	return prg, nil
}

// normalizeExpression accepts the strict equality operators rule authors
// commonly write and maps them to CEL equality.
func normalizeExpression(expression string) string {
	expression = strings.ReplaceAll(expression, "!==", "!=")
	return strings.ReplaceAll(expression, "===", "==")
}

// relation binds a relational operator to the function that replaces it.
type relation struct {
	operator string
	function string
	holds    func(cmp types.Int) bool
}

var relations = []relation{
	{operator: operators.Less, function: "@less", holds: func(c types.Int) bool { return c < 0 }},
	{operator: operators.LessEquals, function: "@less_equals", holds: func(c types.Int) bool { return c <= 0 }},
	{operator: operators.Greater, function: "@greater", holds: func(c types.Int) bool { return c > 0 }},
	{operator: operators.GreaterEquals, function: "@greater_equals", holds: func(c types.Int) bool { return c >= 0 }},
}

// relationalOptions rewrites <, <=, > and >= into functions that also order
// numeric text against numbers. CSV cells and XML leaves are always
// strings, so record.age > 18 must hold for age "36" as it does for 36.
// Equality is left alone.
func relationalOptions() []cel.EnvOption {
	opts := make([]cel.EnvOption, 0, len(relations)*2)
	for _, rel := range relations {
		fn := rel.function
		opts = append(opts,
			cel.Macros(cel.GlobalMacro(rel.operator, 2,
				func(eh cel.MacroExprFactory, _ ast.Expr, args []ast.Expr) (ast.Expr, *cel.Error) {
					return eh.NewCall(fn, args...), nil
				})),
			cel.Function(fn,
				cel.Overload(strings.TrimPrefix(fn, "@")+"_dyn_dyn",
					[]*cel.Type{cel.DynType, cel.DynType}, cel.BoolType,
					cel.BinaryBinding(compareBinding(rel.holds)))),
		)
	}
	return opts
}

func compareBinding(holds func(types.Int) bool) func(lhs, rhs ref.Val) ref.Val {
	return func(lhs, rhs ref.Val) ref.Val {
		if l, r, ok := textNumberOperands(lhs, rhs); ok {
			if math.IsNaN(l) || math.IsNaN(r) {
				return types.False
			}
			return types.Bool(holds(types.Double(l).Compare(types.Double(r)).(types.Int)))
		}

		cmp, ok := lhs.(traits.Comparer)
		if !ok {
			return types.MaybeNoSuchOverloadErr(lhs)
		}
		res := cmp.Compare(rhs)
		c, ok := res.(types.Int)
		if !ok {
			return res
		}
		return types.Bool(holds(c))
	}
}

// textNumberOperands converts a string and a number to floats. Two strings
// or two numbers are left to the standard ordering.
func textNumberOperands(lhs, rhs ref.Val) (float64, float64, bool) {
	ls, lText := lhs.(types.String)
	rs, rText := rhs.(types.String)
	switch {
	case lText && !rText:
		r, ok := celNumber(rhs)
		return numberValue(string(ls)), r, ok
	case rText && !lText:
		l, ok := celNumber(lhs)
		return l, numberValue(string(rs)), ok
	default:
		return 0, 0, false
	}
}

func celNumber(v ref.Val) (float64, bool) {
	switch n := v.(type) {
	case types.Int:
		return float64(n), true
	case types.Uint:
		return float64(n), true
	case types.Double:
		return float64(n), true
	default:
		return 0, false
	}
}
