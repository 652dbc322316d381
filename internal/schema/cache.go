package schema

import (
	"context"
	"errors"
	"time"

	"github.com/vyrodovalexey/avaxform/internal/cache"
	"github.com/vyrodovalexey/avaxform/internal/observability"
)

// CacheName labels the schema document cache in metrics.
const CacheName = "schema"

// CachedFetcher keeps fetched documents for the lifetime of the process.
// Concurrent requests for one URI share a single fetch, and failures are
// not retained so a later request fetches again.
type CachedFetcher struct {
	fetcher   Fetcher
	documents *cache.SingleFlight[*Document]
}

// NewCachedFetcher wraps fetcher with a document cache keyed by the
// normalized URI. loadTimeout bounds a shared fetch; zero leaves it to the
// fetcher.
func NewCachedFetcher(fetcher Fetcher, logger observability.Logger, loadTimeout time.Duration) *CachedFetcher {
	return &CachedFetcher{
		fetcher: fetcher,
		documents: cache.NewSingleFlight[*Document](nil,
			cache.WithName(CacheName),
			cache.WithLogger(logger),
			cache.WithLoadTimeout(loadTimeout),
		),
	}
}

// Fetch returns the cached document for uri, fetching it on first use.
// The request goes to uri as written; only the cache key is normalized.
func (c *CachedFetcher) Fetch(ctx context.Context, uri string) (*Document, error) {
	key := cache.NormalizeURIKey(uri)
	doc, err := c.documents.GetFunc(ctx, key, func(ctx context.Context, _ string) (*Document, error) {
		return c.fetcher.Fetch(ctx, uri)
	})
	if err != nil {
		if errors.Is(err, ErrFetch) {
			return nil, err
		}
		return nil, &FetchError{URI: uri, Err: err}
	}
	return doc, nil
}

// Stats returns cache statistics.
func (c *CachedFetcher) Stats() cache.Stats {
	return c.documents.Stats()
}
