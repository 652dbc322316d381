package retry

import (
	"context"
	"errors"
	"net/http"

	"github.com/vyrodovalexey/avaxform/internal/util"
)

// retryableStatusCodes are upstream statuses worth another attempt.
var retryableStatusCodes = map[int]bool{
	http.StatusRequestTimeout:     true,
	http.StatusTooManyRequests:    true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// Transient reports whether err from an upstream call may succeed on a
// later attempt: retryable statuses, timeouts and transport failures. Open
// circuits, caller cancellation and invalid requests are final.
func Transient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled),
		errors.Is(err, util.ErrCircuitOpen),
		errors.Is(err, util.ErrInvalidInput):
		return false
	}

	var upstream *util.UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}
	if upstream.StatusCode != 0 {
		return retryableStatusCodes[upstream.StatusCode]
	}
	return true
}
