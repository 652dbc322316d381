// Package remote retrieves documents over HTTP GET for the transformation
// pipeline: schema registry entries and remote sample payloads.
//
// Every request is bounded by a timeout and a maximum body size, and may be
// paced by a token bucket and guarded by a circuit breaker.
package remote
