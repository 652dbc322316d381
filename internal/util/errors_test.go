package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name     string
		err      *ConfigError
		expected string
	}{
		{name: "with field", err: NewConfigError("server.port", "must be positive"), expected: "config error at server.port: must be positive"},
		{name: "without field", err: NewConfigError("", "empty"), expected: "config error: empty"},
		{name: "with cause", err: NewConfigErrorWithCause("rules.path", "unreadable", cause), expected: "config error at rules.path: unreadable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.True(t, errors.Is(tt.err, ErrConfigInvalid))
			assert.True(t, errors.Is(tt.err, &ConfigError{}))
		})
	}

	assert.ErrorIs(t, NewConfigErrorWithCause("f", "m", cause), cause)
}

func TestUpstreamError(t *testing.T) {
	status := NewUpstreamStatusError("http://registry/a", 404)
	assert.Equal(t, "upstream http://registry/a returned status 404", status.Error())
	assert.ErrorIs(t, status, ErrUpstreamUnavail)

	cause := errors.New("connection refused")
	transport := NewUpstreamError("http://registry/b", cause)
	assert.Contains(t, transport.Error(), "connection refused")
	assert.ErrorIs(t, transport, cause)

	wrapped := fmt.Errorf("fetch: %w", transport)
	var target *UpstreamError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "http://registry/b", target.URL)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		client bool
		server bool
	}{
		{name: "nil", err: nil},
		{name: "invalid input", err: fmt.Errorf("x: %w", ErrInvalidInput), client: true},
		{name: "unprocessable", err: ErrUnprocessable, client: true},
		{name: "upstream", err: NewUpstreamStatusError("u", 500), server: true},
		{name: "circuit open", err: NewCircuitOpenError("registry", "open"), server: true},
		{name: "timeout", err: ErrTimeout, server: true},
		{name: "plain", err: errors.New("other")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.client, IsClientError(tt.err))
			assert.Equal(t, tt.server, IsServerError(tt.err))
		})
	}
}
