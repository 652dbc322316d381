// Package retry runs operations with exponential backoff and jitter.
package retry
