package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/observability"
	"github.com/vyrodovalexey/avaxform/internal/util"
)

// cbTracer is the OTEL tracer used for circuit breaker operations.
var cbTracer = otel.Tracer("avaxform/circuitbreaker")

// StateFunc is called when the breaker changes state.
type StateFunc func(name string, from, to gobreaker.State)

// Breaker wraps gobreaker.CircuitBreaker. A nil *Breaker is valid and
// passes every call through.
type Breaker struct {
	name          string
	cb            *gobreaker.CircuitBreaker
	logger        observability.Logger
	stateCallback StateFunc
	isFailure     func(error) bool
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(b *Breaker) {
		b.logger = logger
	}
}

// WithStateCallback sets a callback for state changes.
func WithStateCallback(fn StateFunc) Option {
	return func(b *Breaker) {
		b.stateCallback = fn
	}
}

// WithFailurePredicate decides which errors count against the breaker.
// By default every non-nil error except context cancellation does.
func WithFailurePredicate(fn func(error) bool) Option {
	return func(b *Breaker) {
		b.isFailure = fn
	}
}

// New creates a breaker that opens once at least threshold requests were
// seen in the current interval and half of them failed. It stays open for
// timeout before letting trial requests through.
func New(name string, threshold int, timeout time.Duration, opts ...Option) *Breaker {
	b := &Breaker{
		name:      name,
		logger:    observability.NopLogger(),
		isFailure: defaultIsFailure,
	}
	for _, opt := range opts {
		opt(b)
	}

	thresholdU32 := safeIntToUint32(threshold)
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: thresholdU32,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= thresholdU32 && failureRatio >= 0.5
		},
		IsSuccessful: func(err error) bool {
			return !b.isFailure(err)
		},
		OnStateChange: b.onStateChange,
	})
	GetBreakerMetrics().state.WithLabelValues(name).Set(0)
	return b
}

// FromConfig builds a breaker from configuration. It returns nil when the
// breaker is disabled.
func FromConfig(name string, cfg config.CircuitBreakerConfig, opts ...Option) *Breaker {
	if !cfg.Enabled {
		return nil
	}
	return New(name, cfg.Threshold, cfg.Timeout.Duration(), opts...)
}

func (b *Breaker) onStateChange(name string, from, to gobreaker.State) {
	b.logger.Info("circuit breaker state change",
		observability.String("name", name),
		observability.String("from", from.String()),
		observability.String("to", to.String()),
	)

	m := GetBreakerMetrics()
	m.transitions.WithLabelValues(name, from.String(), to.String()).Inc()
	m.state.WithLabelValues(name).Set(float64(to))

	_, span := cbTracer.Start(context.Background(),
		"circuitbreaker.state_change",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.AddEvent("state_change", trace.WithAttributes(
		attribute.String("circuitbreaker.name", name),
		attribute.String("circuitbreaker.from", from.String()),
		attribute.String("circuitbreaker.to", to.String()),
	))
	span.End()

	if b.stateCallback != nil {
		b.stateCallback(name, from, to)
	}
}

// Execute runs fn under breaker protection. When the breaker rejects the
// call the returned error is a *util.CircuitOpenError.
func (b *Breaker) Execute(fn func() error) error {
	if b == nil {
		return fn()
	}

	m := GetBreakerMetrics()
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		m.requests.WithLabelValues(b.name, "rejected").Inc()
		b.logger.Warn("circuit breaker rejected request",
			observability.String("name", b.name),
			observability.String("state", b.cb.State().String()),
		)
		return util.NewCircuitOpenError(b.name, b.cb.State().String())
	}

	result := "success"
	if err != nil && b.isFailure(err) {
		result = "failure"
	}
	m.requests.WithLabelValues(b.name, result).Inc()
	return err
}

// State returns the current state. A nil breaker is always closed.
func (b *Breaker) State() gobreaker.State {
	if b == nil {
		return gobreaker.StateClosed
	}
	return b.cb.State()
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}
