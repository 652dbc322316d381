package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/vyrodovalexey/avaxform/internal/observability"
)

// cacheTracerName is the OpenTelemetry tracer name for cache operations.
const cacheTracerName = "avaxform/cache"

// ErrNoLoader is returned by Get when the cache was created without a
// loader.
var ErrNoLoader = errors.New("cache has no loader")

// ErrEmptyKey is returned for an empty cache key.
var ErrEmptyKey = errors.New("cache key is empty")

// Loader loads the value for a key.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// Stats contains cache statistics.
type Stats struct {
	// Hits is the number of lookups served from stored values.
	Hits int64

	// Misses is the number of lookups that waited for a load.
	Misses int64

	// Shared is the number of misses that joined a load started by
	// another caller.
	Shared int64

	// LoadErrors is the number of failed loads.
	LoadErrors int64

	// Size is the current number of stored values.
	Size int64
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

type settings struct {
	name        string
	logger      observability.Logger
	loadTimeout time.Duration
}

// Option configures a SingleFlight cache.
type Option func(*settings)

// WithName sets the name used in metrics and spans.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithLoadTimeout bounds a single load. Zero means no bound beyond the
// loader's own.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.loadTimeout = d
	}
}

// SingleFlight is a concurrency-safe cache that loads missing keys at most
// once at a time. It is safe for concurrent use.
type SingleFlight[V any] struct {
	settings
	loader Loader[V]

	mu      sync.RWMutex
	entries map[string]V
	group   singleflight.Group

	hits       atomic.Int64
	misses     atomic.Int64
	shared     atomic.Int64
	loadErrors atomic.Int64
}

// NewSingleFlight creates a cache backed by loader. loader may be nil when
// every lookup goes through GetFunc.
func NewSingleFlight[V any](loader Loader[V], opts ...Option) *SingleFlight[V] {
	s := settings{
		name:   "default",
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = observability.NopLogger()
	}

	return &SingleFlight[V]{
		settings: s,
		loader:   loader,
		entries:  make(map[string]V),
	}
}

// Get returns the value for key, loading it if needed. Callers waiting on
// the same key share the load's outcome. If ctx ends first, Get returns
// ctx.Err() while the load continues for the other callers; its result is
// still stored on success.
func (c *SingleFlight[V]) Get(ctx context.Context, key string) (V, error) {
	if c.loader == nil {
		var zero V
		return zero, ErrNoLoader
	}
	return c.GetFunc(ctx, key, c.loader)
}

// GetFunc is Get with loader used in place of the cache's own loader on a
// miss. A load already in flight for key is shared whichever loader
// started it.
func (c *SingleFlight[V]) GetFunc(ctx context.Context, key string, loader Loader[V]) (V, error) {
	var zero V
	if key == "" {
		return zero, ErrEmptyKey
	}

	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.Get",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cache.name", c.name),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	metrics := GetCacheMetrics()

	if v, ok := c.Peek(key); ok {
		c.hits.Add(1)
		metrics.hitsTotal.WithLabelValues(c.name).Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return v, nil
	}

	c.misses.Add(1)
	metrics.missesTotal.WithLabelValues(c.name).Inc()
	span.SetAttributes(attribute.Bool("cache.hit", false))

	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.load(ctx, key, loader)
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.shared.Add(1)
			metrics.sharedTotal.WithLabelValues(c.name).Inc()
			span.SetAttributes(attribute.Bool("cache.shared", true))
		}
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil

	case <-ctx.Done():
		span.SetStatus(codes.Error, "caller gave up waiting")
		return zero, ctx.Err()
	}
}

// load runs the loader detached from the first caller's cancellation so
// that its result can serve every waiting caller.
func (c *SingleFlight[V]) load(ctx context.Context, key string, loader Loader[V]) (V, error) {
	if v, ok := c.Peek(key); ok {
		return v, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	if c.loadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(loadCtx, c.loadTimeout)
		defer cancel()
	}

	start := time.Now()
	v, err := loader(loadCtx, key)
	metrics := GetCacheMetrics()
	metrics.loadDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())

	if err != nil {
		c.loadErrors.Add(1)
		metrics.loadErrorsTotal.WithLabelValues(c.name).Inc()
		c.logger.Warn("cache load failed",
			observability.String("cache", c.name),
			observability.String("key", key),
			observability.Error(err))
		var zero V
		return zero, fmt.Errorf("load %q: %w", key, err)
	}

	c.mu.Lock()
	c.entries[key] = v
	size := len(c.entries)
	c.mu.Unlock()
	metrics.sizeGauge.WithLabelValues(c.name).Set(float64(size))

	c.logger.Debug("cache entry loaded",
		observability.String("cache", c.name),
		observability.String("key", key))
	return v, nil
}

// Peek returns a stored value without loading.
func (c *SingleFlight[V]) Peek(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Invalidate removes a stored value.
func (c *SingleFlight[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	size := len(c.entries)
	c.mu.Unlock()
	GetCacheMetrics().sizeGauge.WithLabelValues(c.name).Set(float64(size))
}

// Len returns the number of stored values.
func (c *SingleFlight[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *SingleFlight[V]) Stats() Stats {
	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Shared:     c.shared.Load(),
		LoadErrors: c.loadErrors.Load(),
		Size:       int64(c.Len()),
	}
}
