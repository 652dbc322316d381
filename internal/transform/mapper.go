package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/observability"
)

// templateMarker marks a mapping source that is rendered as a template.
const templateMarker = "{{"

// Mapper builds new records from a mapping of target paths to sources.
type Mapper struct {
	logger    observability.Logger
	templates *Engine
}

// MapperOption is a functional option for the mapper.
type MapperOption func(*Mapper)

// WithMapperLogger sets the logger.
func WithMapperLogger(logger observability.Logger) MapperOption {
	return func(m *Mapper) {
		m.logger = logger
	}
}

// NewMapper creates a mapper rendering inline templates on templates.
func NewMapper(templates *Engine, opts ...MapperOption) *Mapper {
	if templates == nil {
		templates = NewEngine(nil)
	}
	m := &Mapper{
		logger:    observability.NopLogger(),
		templates: templates,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = observability.NopLogger()
	}
	return m
}

// Apply maps every element of a list, or data itself as a single record.
// An empty mapping returns data unchanged.
func (m *Mapper) Apply(data interface{}, mapping config.MappingConfig) (interface{}, error) {
	if len(mapping) == 0 {
		return data, nil
	}

	start := time.Now()
	defer func() {
		GetTransformMetrics().ObserveStage("mapping", time.Since(start))
	}()

	records, ok := data.([]interface{})
	if !ok {
		return m.MapRecord(data, mapping)
	}

	out := make([]interface{}, len(records))
	for i, record := range records {
		mapped, err := m.MapRecord(record, mapping)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = mapped
	}
	return out, nil
}

// MapRecord produces a new map from record. Entries are applied in order:
//   - a non-string source is written as is
//   - a string containing "{{" is rendered against record and coerced
//   - any other string is a path into record whose value is copied; a
//     missing path writes nothing
func (m *Mapper) MapRecord(record interface{}, mapping config.MappingConfig) (map[string]interface{}, error) {
	var out interface{} = make(map[string]interface{})

	for _, entry := range mapping {
		source, isString := entry.Source.(string)
		switch {
		case !isString:
			out = SetPath(out, entry.Target, entry.Source)

		case strings.Contains(source, templateMarker):
			rendered, err := m.templates.RenderString(source, record)
			if err != nil {
				return nil, fmt.Errorf("mapping %q: %w", entry.Target, err)
			}
			out = SetPath(out, entry.Target, CoerceValue(rendered))

		default:
			value, found := GetPath(record, source)
			if !found {
				m.logger.Debug("mapping source not found",
					observability.String("source", source),
					observability.String("target", entry.Target))
				continue
			}
			out = SetPath(out, entry.Target, value)
		}
	}

	return out.(map[string]interface{}), nil
}
