package schema

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/remote"
	"github.com/vyrodovalexey/avaxform/internal/util"
	"github.com/vyrodovalexey/avaxform/internal/validation"
)

// registry serves schema documents by path and counts requests.
type registry struct {
	mu    sync.Mutex
	docs  map[string]string
	hits  map[string]int
	delay time.Duration
}

func newRegistry(docs map[string]string) *registry {
	return &registry{docs: docs, hits: make(map[string]int)}
}

func (r *registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.hits[req.URL.Path]++
	body, ok := r.docs[req.URL.Path]
	delay := r.delay
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (r *registry) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[path]
}

func (r *registry) set(path, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[path] = body
}

func newTestResolver(t *testing.T, reg *registry) (*Resolver, string) {
	t.Helper()
	srv := httptest.NewServer(reg)
	t.Cleanup(srv.Close)

	fetcher := NewCachedFetcher(NewHTTPFetcher(remote.New("test-registry")), nil, time.Second)
	return NewResolver(fetcher), srv.URL
}

func TestResolver_OverlayUserWins(t *testing.T) {
	reg := newRegistry(map[string]string{
		"/Unit": `{"title":"Unit","code":"字串","regexp":"/^(ppm|ppb)$/"}`,
	})
	resolver, base := newTestResolver(t, reg)

	rules := resolver.Resolve(context.Background(), []config.ValidationRule{
		{Field: "unit", SchemaURI: base + "/Unit"},
		{Field: "unit", SchemaURI: base + "/Unit", Message: "custom message"},
		{Field: "unit", SchemaURI: base + "/Unit", Type: validation.KindRequired},
		{Field: "plain", Type: validation.KindString},
	})
	require.Len(t, rules, 4)

	assert.Equal(t, validation.KindEnum, rules[0].Type)
	assert.Equal(t, []interface{}{"ppm", "ppb"}, rules[0].Values)
	assert.Equal(t, "field Unit must be one of ppm, ppb", rules[0].Message)

	assert.Equal(t, validation.KindEnum, rules[1].Type)
	assert.Equal(t, "custom message", rules[1].Message)

	assert.Equal(t, validation.KindRequired, rules[2].Type)
	assert.Equal(t, config.ValidationRule{Field: "plain", Type: validation.KindString}, rules[3])

	assert.Equal(t, 1, reg.count("/Unit"))
}

func TestResolver_FetchFailureKeepsRuleAndRetries(t *testing.T) {
	reg := newRegistry(map[string]string{})
	resolver, base := newTestResolver(t, reg)

	given := config.ValidationRule{Field: "id", SchemaURI: base + "/ID", Type: validation.KindRequired}
	rules := resolver.Resolve(context.Background(), []config.ValidationRule{given})
	require.Len(t, rules, 1)
	assert.Equal(t, given, rules[0])

	reg.set("/ID", `{"title":"ID","regexp":"idValidate","property":"[A-Z][1-2][00000000-99999999]"}`)
	rules = resolver.Resolve(context.Background(), []config.ValidationRule{
		{Field: "id", SchemaURI: base + "/ID"},
	})
	require.Len(t, rules, 1)
	assert.Equal(t, validation.KindRegex, rules[0].Type)
	assert.Equal(t, "idValidate", rules[0].ValidatorName)
	assert.Equal(t, 2, reg.count("/ID"))
}

func TestResolver_ExpandsFieldlessRule(t *testing.T) {
	reg := newRegistry(map[string]string{
		"/Dataset": `{"columns":[{"name":"when","code":"日期"},{"name":"amount","code":"數字"}]}`,
	})
	resolver, base := newTestResolver(t, reg)

	rules := resolver.Resolve(context.Background(), []config.ValidationRule{
		{SchemaURI: base + "/Dataset"},
	})
	require.Len(t, rules, 2)
	assert.Equal(t, "when", rules[0].Field)
	assert.Equal(t, validation.KindDate, rules[0].Type)
	assert.Equal(t, "amount", rules[1].Field)
	assert.Equal(t, validation.KindNumber, rules[1].Type)
}

func TestResolver_NilOrNoFetcher(t *testing.T) {
	rules := []config.ValidationRule{{Field: "a", SchemaURI: "https://x"}}

	var nilResolver *Resolver
	assert.Equal(t, rules, nilResolver.Resolve(context.Background(), rules))
	assert.Equal(t, rules, NewResolver(nil).Resolve(context.Background(), rules))
}

func TestCachedFetcher_SingleFlight(t *testing.T) {
	reg := newRegistry(map[string]string{"/Slow": `{"title":"Slow","code":"字串"}`})
	reg.delay = 50 * time.Millisecond
	srv := httptest.NewServer(reg)
	defer srv.Close()

	fetcher := NewCachedFetcher(NewHTTPFetcher(remote.New("test-single")), nil, 0)

	const callers = 5
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := fetcher.Fetch(context.Background(), srv.URL+"/Slow"); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failures.Load())
	assert.Equal(t, 1, reg.count("/Slow"))

	_, err := fetcher.Fetch(context.Background(), srv.URL+"/Slow#section")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.count("/Slow"))
	assert.Equal(t, int64(1), fetcher.Stats().Size)
}

type recordingFetcher struct {
	mu   sync.Mutex
	uris []string
}

func (f *recordingFetcher) Fetch(_ context.Context, uri string) (*Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uris = append(f.uris, uri)
	return &Document{Definition: Definition{Title: "Unit", Code: "字串"}}, nil
}

func TestCachedFetcher_FetchesURIAsWritten(t *testing.T) {
	inner := &recordingFetcher{}
	fetcher := NewCachedFetcher(inner, nil, 0)

	const written = "https://Registry.example/Unit?z=1&a=x%20y#v2"
	_, err := fetcher.Fetch(context.Background(), written)
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), "https://registry.example/Unit?a=x+y&z=1")
	require.NoError(t, err)

	assert.Equal(t, []string{written}, inner.uris)
	assert.Equal(t, int64(1), fetcher.Stats().Hits)
}

func TestHTTPFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			_, _ = w.Write([]byte(`not json`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(remote.New("test-errors"))

	_, err := fetcher.Fetch(context.Background(), srv.URL+"/down")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	var upstream *util.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)

	_, err = fetcher.Fetch(context.Background(), srv.URL+"/bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestResolver_Compile(t *testing.T) {
	reg := newRegistry(map[string]string{
		"/Multi": `{"properties":{"a":{"code":"數字"},"b":{"code":"日期"}}}`,
	})
	resolver, base := newTestResolver(t, reg)

	rules, err := resolver.Compile(context.Background(), base+"/Multi", "")
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	rules, err = resolver.Compile(context.Background(), base+"/Multi", "b")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, validation.KindDate, rules[0].Type)

	_, err = resolver.Compile(context.Background(), base+"/Missing", "a")
	assert.ErrorIs(t, err, ErrFetch)
}

func TestOverlay(t *testing.T) {
	compiled := config.ValidationRule{
		Field:   "f",
		Type:    validation.KindLength,
		Min:     floatPtr(0),
		Max:     floatPtr(200),
		Pattern: "^.{0,200}$",
		Message: "compiled",
	}
	user := config.ValidationRule{Max: floatPtr(10), Message: "user"}

	got := Overlay(compiled, user)
	assert.Equal(t, validation.KindLength, got.Type)
	assert.Equal(t, float64(0), *got.Min)
	assert.Equal(t, float64(10), *got.Max)
	assert.Equal(t, "^.{0,200}$", got.Pattern)
	assert.Equal(t, "user", got.Message)
	assert.Equal(t, "f", got.Field)
}
