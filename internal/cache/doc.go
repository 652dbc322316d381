// Package cache provides the process-lifetime caches of the gateway.
//
// SingleFlight maps a key to a loaded value. Concurrent callers asking for
// the same missing key share a single load; successful loads are kept for
// the life of the process and failures are not kept, so a later call
// retries.
//
// # Example Usage
//
//	docs := cache.NewSingleFlight(func(ctx context.Context, uri string) (*Document, error) {
//	    return fetcher.Fetch(ctx, uri)
//	}, cache.WithName("schema"), cache.WithLoadTimeout(10*time.Second))
//
//	doc, err := docs.Get(ctx, cache.NormalizeURIKey(uri))
package cache
