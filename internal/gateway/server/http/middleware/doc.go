// Package middleware provides the gin middleware of the transformation API:
// request IDs, access logging, panic recovery, tracing and request metrics.
package middleware
