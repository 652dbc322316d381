package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/vyrodovalexey/avaxform/internal/circuitbreaker"
	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/observability"
	"github.com/vyrodovalexey/avaxform/internal/remote"
	"github.com/vyrodovalexey/avaxform/internal/retry"
)

// ErrFetch matches every schema fetch failure.
var ErrFetch = errors.New("schema fetch failed")

// FetchError is returned when a schema document cannot be retrieved or
// decoded.
type FetchError struct {
	URI string
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch schema %s: %v", e.URI, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// Fetcher retrieves schema documents.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (*Document, error)
}

// HTTPFetcher fetches schema documents from a registry over HTTP.
type HTTPFetcher struct {
	getter remote.Getter
}

// NewHTTPFetcher creates a fetcher on top of getter.
func NewHTTPFetcher(getter remote.Getter) *HTTPFetcher {
	return &HTTPFetcher{getter: getter}
}

// NewHTTPFetcherFromConfig builds a registry client from configuration.
func NewHTTPFetcherFromConfig(cfg config.SchemaRegistryConfig, logger observability.Logger) *HTTPFetcher {
	const name = "schema_registry"

	opts := []remote.Option{
		remote.WithTimeout(cfg.Timeout.OrDefault(config.DefaultFetchTimeout)),
		remote.WithMaxBodySize(cfg.MaxBodySize),
		remote.WithAccept("application/json"),
		remote.WithLogger(logger),
		remote.WithBreaker(circuitbreaker.FromConfig(name, cfg.CircuitBreaker,
			circuitbreaker.WithLogger(logger))),
		remote.WithRetry(retry.FromConfig(cfg.Retry)),
	}
	if cfg.RateLimit.Enabled {
		opts = append(opts, remote.WithRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}
	return NewHTTPFetcher(remote.New(name, opts...))
}

// Fetch retrieves and decodes the document at uri.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (*Document, error) {
	body, err := f.getter.Get(ctx, uri)
	if err != nil {
		return nil, &FetchError{URI: uri, Err: err}
	}
	doc, err := ParseDocument(body)
	if err != nil {
		return nil, &FetchError{URI: uri, Err: err}
	}
	return doc, nil
}
