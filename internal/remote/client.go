package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/avaxform/internal/circuitbreaker"
	"github.com/vyrodovalexey/avaxform/internal/observability"
	"github.com/vyrodovalexey/avaxform/internal/retry"
	"github.com/vyrodovalexey/avaxform/internal/util"
)

// remoteTracerName is the OpenTelemetry tracer name for remote fetches.
const remoteTracerName = "avaxform/remote"

// Default limits.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxBodySize = 5 << 20
)

// ErrBodyTooLarge is returned when a response exceeds the body size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// Getter retrieves the body of a URL.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client is an HTTP GET client with pacing and circuit breaking.
type Client struct {
	name        string
	httpClient  *http.Client
	timeout     time.Duration
	maxBodySize int64
	limiter     *rate.Limiter
	breaker     *circuitbreaker.Breaker
	retry       *retry.Config
	logger      observability.Logger
	accept      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithTimeout bounds a single request.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithMaxBodySize limits the accepted response size in bytes.
func WithMaxBodySize(n int64) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.maxBodySize = n
		}
	}
}

// WithRateLimit paces outgoing requests with a token bucket.
func WithRateLimit(rps, burst int) Option {
	return func(cl *Client) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		cl.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker guards requests with a circuit breaker.
func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

// WithRetry retries transient failures. A nil config means one attempt.
func WithRetry(cfg *retry.Config) Option {
	return func(cl *Client) {
		cl.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// WithAccept sets the Accept header sent with every request.
func WithAccept(accept string) Option {
	return func(cl *Client) {
		cl.accept = accept
	}
}

// New creates a client. The name labels metrics and spans.
func New(name string, opts ...Option) *Client {
	c := &Client{
		name:        name,
		httpClient:  &http.Client{},
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		logger:      observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url and returns the response body. Non-200 responses yield a
// *util.UpstreamError carrying the status code.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	ctx, span := otel.Tracer(remoteTracerName).Start(ctx, "remote.Get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("remote.client", c.name),
			attribute.String("http.url", url),
		),
	)
	defer span.End()

	start := time.Now()
	body, err := c.get(ctx, url)
	GetRemoteMetrics().observe(c.name, resultOf(err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("remote fetch failed",
			observability.String("client", c.name),
			observability.String("url", url),
			observability.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response_size", len(body)))
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL", util.ErrInvalidInput)
	}

	var body []byte
	attempt := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
		}
		return c.breaker.Execute(func() error {
			var doErr error
			body, doErr = c.do(ctx, url)
			return doErr
		})
	}

	if c.retry == nil {
		err := attempt()
		return body, err
	}
	err := retry.Do(ctx, c.retry, attempt, &retry.Options{
		ShouldRetry: shouldRetry,
		OnRetry: func(n int, err error, backoff time.Duration) {
			c.logger.Debug("retrying remote fetch",
				observability.String("client", c.name),
				observability.String("url", url),
				observability.Int("attempt", n),
				observability.Duration("backoff", backoff),
				observability.Error(err),
			)
		},
	})
	return body, err
}

func shouldRetry(err error) bool {
	return retry.Transient(err) && !errors.Is(err, ErrBodyTooLarge)
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidInput, err)
	}
	if c.accept != "" {
		req.Header.Set("Accept", c.accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, util.NewUpstreamError(url, fmt.Errorf("%w: %v", util.ErrTimeout, err))
		}
		return nil, util.NewUpstreamError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, util.NewUpstreamStatusError(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, util.NewUpstreamError(url, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, util.NewUpstreamError(url, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, c.maxBodySize))
	}
	return body, nil
}

func resultOf(err error) string {
	var upstream *util.UpstreamError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, util.ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &upstream) && upstream.StatusCode != 0:
		return "status_error"
	case errors.Is(err, util.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
