package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avaxform/internal/encoding"
	"github.com/vyrodovalexey/avaxform/internal/observability"
	"github.com/vyrodovalexey/avaxform/internal/pipeline"
	"github.com/vyrodovalexey/avaxform/internal/transform"
	"github.com/vyrodovalexey/avaxform/internal/util"
)

// ErrorResponse is the JSON body of a failed call.
type ErrorResponse struct {
	Error      string      `json:"error"`
	Message    string      `json:"message"`
	Validation interface{} `json:"validation,omitempty"`
}

// StatusFor maps a transformation error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, encoding.ErrParse),
		errors.Is(err, encoding.ErrUnsupportedFormat),
		errors.Is(err, util.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, transform.ErrPipelineAbort),
		errors.Is(err, pipeline.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrSourceFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeTransformError(c *gin.Context, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
	}

	var failed *pipeline.ValidationFailedError
	if errors.As(err, &failed) {
		resp.Validation = failed.Report
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithContext(c.Request.Context()).Error("transformation error",
			observability.Int("status", status),
			observability.Error(err),
		)
	}
	_ = c.Error(err)
	c.JSON(status, resp)
}

func writeError(c *gin.Context, status int, title, message string) {
	c.JSON(status, ErrorResponse{Error: title, Message: message})
}
