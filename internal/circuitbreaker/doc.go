// Package circuitbreaker guards outbound calls to remote document sources
// (schema registries, sample payload URLs) with a gobreaker circuit
// breaker that reports its transitions to logs, metrics and traces.
package circuitbreaker
