package transform

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/aymerick/raymond"

	"github.com/vyrodovalexey/avaxform/internal/observability"
)

const defaultMaxCachedTemplates = 1000

// Engine renders Handlebars templates with a HelperRegistry bound. Output
// is never HTML-escaped.
type Engine struct {
	logger    observability.Logger
	helpers   *HelperRegistry
	cache     map[string]*raymond.Template
	cacheMu   sync.RWMutex
	maxCached int
}

// EngineOption is a functional option for configuring the template engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger.
func WithEngineLogger(logger observability.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTemplateCache sets the maximum number of cached templates.
func WithTemplateCache(maxCached int) EngineOption {
	return func(e *Engine) {
		e.maxCached = maxCached
	}
}

// NewEngine creates a template engine. A nil registry gets the default
// helper set.
func NewEngine(helpers *HelperRegistry, opts ...EngineOption) *Engine {
	if helpers == nil {
		helpers = NewHelperRegistry()
	}

	e := &Engine{
		logger:    observability.NopLogger(),
		helpers:   helpers,
		cache:     make(map[string]*raymond.Template),
		maxCached: defaultMaxCachedTemplates,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = observability.NopLogger()
	}
	return e
}

// Compile parses text, or returns the cached template for it.
func (e *Engine) Compile(text string) (*raymond.Template, error) {
	e.cacheMu.RLock()
	tpl, ok := e.cache[text]
	e.cacheMu.RUnlock()
	if ok {
		return tpl, nil
	}

	tpl, err := raymond.Parse(rawMustaches(text))
	if err != nil {
		GetTransformMetrics().RecordError("template", "parse")
		return nil, &TemplateError{Template: text, Err: err}
	}
	e.helpers.bind(tpl)

	e.cacheMu.Lock()
	if existing, ok := e.cache[text]; ok {
		tpl = existing
	} else if len(e.cache) < e.maxCached {
		e.cache[text] = tpl
	}
	e.cacheMu.Unlock()

	return tpl, nil
}

// RenderString executes text against ctx and returns the rendered text.
func (e *Engine) RenderString(text string, ctx interface{}) (string, error) {
	tpl, err := e.Compile(text)
	if err != nil {
		return "", err
	}

	out, err := tpl.Exec(ctx)
	if err != nil {
		GetTransformMetrics().RecordError("template", "exec")
		e.logger.Debug("template execution failed", observability.Error(err))
		return "", &TemplateError{Template: text, Err: err}
	}
	return out, nil
}

// Render executes text with data as context. An empty template returns
// data unchanged. Output that parses as JSON is returned decoded, anything
// else as the rendered string.
func (e *Engine) Render(data interface{}, text string) (interface{}, error) {
	if text == "" {
		return data, nil
	}

	start := time.Now()
	out, err := e.RenderString(text, data)
	GetTransformMetrics().ObserveStage("template", time.Since(start))
	if err != nil {
		return nil, err
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(out), &parsed); err == nil {
		return parsed, nil
	}
	return out, nil
}

// rawMustaches rewrites {{expr}} to {{{expr}}} so that values are written
// without HTML escaping. Block, partial, comment and else tags are kept.
func rawMustaches(text string) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text) + 16)

	for {
		open := strings.Index(text, "{{")
		if open < 0 {
			sb.WriteString(text)
			return sb.String()
		}
		sb.WriteString(text[:open])
		text = text[open:]

		if strings.HasPrefix(text, "{{{") {
			end := strings.Index(text, "}}}")
			if end < 0 {
				sb.WriteString(text)
				return sb.String()
			}
			sb.WriteString(text[:end+3])
			text = text[end+3:]
			continue
		}

		if strings.HasPrefix(text, "{{!") {
			closer := "}}"
			if strings.HasPrefix(text, "{{!--") {
				closer = "--}}"
			}
			end := strings.Index(text, closer)
			if end < 0 {
				sb.WriteString(text)
				return sb.String()
			}
			sb.WriteString(text[:end+len(closer)])
			text = text[end+len(closer):]
			continue
		}

		end := strings.Index(text, "}}")
		if end < 0 {
			sb.WriteString(text)
			return sb.String()
		}
		body := text[2:end]
		if keepEscapedTag(body) {
			sb.WriteString(text[:end+2])
		} else {
			sb.WriteString("{{{")
			sb.WriteString(body)
			sb.WriteString("}}}")
		}
		text = text[end+2:]
	}
}

func keepEscapedTag(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return true
	}
	switch trimmed[0] {
	case '#', '/', '^', '>', '&', '~', '!', '*':
		return true
	}
	return trimmed == "else" || strings.HasPrefix(trimmed, "else ")
}
