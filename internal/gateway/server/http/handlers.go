package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/observability"
	"github.com/vyrodovalexey/avaxform/internal/pipeline"
)

// Transformer runs a rule over a payload.
type Transformer interface {
	Transform(
		ctx context.Context,
		source interface{},
		rule *config.TransformationRule,
		opts ...pipeline.TransformOption,
	) (*pipeline.Result, error)
}

// RuleSource yields the currently loaded rule set. *config.RuleWatcher
// implements it.
type RuleSource interface {
	Rules() *config.RuleSet
}

// StaticRules is a RuleSource over a fixed rule set.
type StaticRules struct {
	Set *config.RuleSet
}

// Rules returns the fixed rule set.
func (s StaticRules) Rules() *config.RuleSet {
	return s.Set
}

// PreviewRequest is the body of a preview call.
type PreviewRequest struct {
	Rule          *config.TransformationRule `json:"rule"`
	SampleInput   config.RawText             `json:"sample_input"`
	TestSourceURL string                     `json:"test_source_url"`
	SourceFormat  string                     `json:"source_format"`
	TargetFormat  string                     `json:"target_format"`
}

// Handler serves the transformation endpoints.
type Handler struct {
	transformer Transformer
	rules       RuleSource
	metrics     http.Handler
	metricsPath string
	logger      observability.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRules enables the named-rule endpoints.
func WithRules(rules RuleSource) HandlerOption {
	return func(h *Handler) {
		h.rules = rules
	}
}

// WithMetricsHandler serves handler on path, /metrics when empty.
func WithMetricsHandler(path string, handler http.Handler) HandlerOption {
	return func(h *Handler) {
		if path == "" {
			path = "/metrics"
		}
		h.metrics = handler
		h.metricsPath = path
	}
}

// WithHandlerLogger sets the logger.
func WithHandlerLogger(logger observability.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a Handler.
func NewHandler(transformer Transformer, opts ...HandlerOption) *Handler {
	h := &Handler{
		transformer: transformer,
		logger:      observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API routes on engine.
func (h *Handler) Register(engine *gin.Engine) {
	engine.GET("/health", h.health)
	if h.metrics != nil {
		engine.GET(h.metricsPath, gin.WrapH(h.metrics))
	}

	v1 := engine.Group("/api/v1")
	v1.POST("/transform/preview", h.preview)
	v1.GET("/rules", h.listRules)
	v1.POST("/rules/:name/transform", h.transformNamed)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "No route matched the request",
		})
	})
}

func (h *Handler) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.rules != nil {
		body["rules"] = len(h.rules.Rules().Names())
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	opts := []pipeline.TransformOption{
		pipeline.WithSourceFormat(req.SourceFormat),
		pipeline.WithTargetFormat(req.TargetFormat),
		pipeline.WithSourceURL(req.TestSourceURL),
	}
	result, err := h.transformer.Transform(c.Request.Context(), string(req.SampleInput), req.Rule, opts...)
	if err != nil {
		h.writeTransformError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) listRules(c *gin.Context) {
	names := []string{}
	if h.rules != nil {
		names = append(names, h.rules.Rules().Names()...)
	}
	c.JSON(http.StatusOK, gin.H{"rules": names})
}

func (h *Handler) transformNamed(c *gin.Context) {
	name := c.Param("name")
	var rule *config.TransformationRule
	if h.rules != nil {
		rule, _ = h.rules.Rules().Lookup(name)
	}
	if rule == nil {
		writeError(c, http.StatusNotFound, "Not Found", "rule "+name+" not found")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, "Request Entity Too Large", err.Error())
			return
		}
		writeError(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	result, err := h.transformer.Transform(c.Request.Context(), string(body), rule,
		pipeline.WithSourceFormat(c.Query("source_format")),
		pipeline.WithTargetFormat(c.Query("target_format")),
	)
	if err != nil {
		h.writeTransformError(c, err)
		return
	}

	c.Header("X-Validation-Passed", boolText(result.Meta.ValidationPassed))
	c.Data(http.StatusOK, ContentTypeFor(result.TargetFormat), []byte(result.OutputText))
}

// ContentTypeFor returns the response content type of a target format.
func ContentTypeFor(format string) string {
	switch strings.ToLower(format) {
	case config.FormatCSV:
		return "text/csv; charset=utf-8"
	case config.FormatXML:
		return "application/xml; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

func boolText(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
