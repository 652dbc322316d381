package encoding

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vyrodovalexey/avaxform/internal/observability"
	"github.com/vyrodovalexey/avaxform/internal/util"
)

// Common encoding errors.
var (
	// ErrUnsupportedFormat indicates that the payload format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrParse indicates that a payload could not be parsed.
	ErrParse = errors.New("parse failed")

	// ErrSerialize indicates that a value could not be serialized.
	ErrSerialize = errors.New("serialize failed")
)

// ParseError reports malformed input for a format.
type ParseError struct {
	Format string
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s input: %v", e.Format, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches ErrParse and util.ErrInvalidInput.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse || target == util.ErrInvalidInput
}

// UnsupportedFormatError reports an unknown format name.
type UnsupportedFormatError struct {
	Format string
}

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %q", e.Format)
}

// Is matches ErrUnsupportedFormat and util.ErrInvalidInput.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat || target == util.ErrInvalidInput
}

// Codec converts between payload text and generic values for one format.
type Codec interface {
	// Format returns the format name.
	Format() string

	// Parse decodes input, which is a string or []byte. Codecs may accept
	// other already-decoded values.
	Parse(input interface{}) (interface{}, error)

	// Serialize encodes a generic value.
	Serialize(v interface{}) (string, error)

	// ContentType returns the MIME type of serialized output.
	ContentType() string
}

// Factory resolves codecs by format name and records codec metrics.
type Factory struct {
	logger observability.Logger
	codecs map[string]Codec
}

// NewFactory creates a Factory with the json, csv and xml codecs.
func NewFactory(logger observability.Logger) *Factory {
	if logger == nil {
		logger = observability.NopLogger()
	}

	f := &Factory{
		logger: logger,
		codecs: make(map[string]Codec),
	}
	f.Register(NewJSONCodec())
	f.Register(NewCSVCodec())
	f.Register(NewXMLCodec())
	return f
}

// Register adds or replaces a codec.
func (f *Factory) Register(c Codec) {
	f.codecs[strings.ToLower(c.Format())] = c
}

// Codec returns the codec for format.
func (f *Factory) Codec(format string) (Codec, error) {
	c, ok := f.codecs[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		GetEncodingMetrics().errorsTotal.WithLabelValues(format, "unsupported").Inc()
		return nil, &UnsupportedFormatError{Format: format}
	}
	return c, nil
}

// SupportedFormats returns the registered format names, sorted.
func (f *Factory) SupportedFormats() []string {
	out := make([]string, 0, len(f.codecs))
	for name := range f.codecs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Parse decodes input in the given format. Nil or empty input yields an
// empty map for every format.
func (f *Factory) Parse(input interface{}, format string) (interface{}, error) {
	codec, err := f.Codec(format)
	if err != nil {
		return nil, err
	}

	if isEmptyInput(input) {
		return map[string]interface{}{}, nil
	}

	start := time.Now()
	v, err := codec.Parse(input)
	m := GetEncodingMetrics()
	m.decodeDuration.WithLabelValues(codec.Format()).Observe(time.Since(start).Seconds())
	if err != nil {
		m.decodeTotal.WithLabelValues(codec.Format(), "error").Inc()
		m.errorsTotal.WithLabelValues(codec.Format(), "parse").Inc()
		f.logger.Debug("payload parse failed",
			observability.String("format", codec.Format()),
			observability.Error(err))
		return nil, err
	}
	m.decodeTotal.WithLabelValues(codec.Format(), "success").Inc()
	return v, nil
}

// Serialize encodes v in the given format.
func (f *Factory) Serialize(v interface{}, format string) (string, error) {
	codec, err := f.Codec(format)
	if err != nil {
		return "", err
	}

	out, err := codec.Serialize(v)
	m := GetEncodingMetrics()
	if err != nil {
		m.encodeTotal.WithLabelValues(codec.Format(), "error").Inc()
		m.errorsTotal.WithLabelValues(codec.Format(), "serialize").Inc()
		return "", fmt.Errorf("%w: %s: %w", ErrSerialize, codec.Format(), err)
	}
	m.encodeTotal.WithLabelValues(codec.Format(), "success").Inc()
	return out, nil
}

func isEmptyInput(input interface{}) bool {
	switch v := input.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	default:
		return false
	}
}

// inputText extracts text input for codecs that only accept text.
func inputText(format string, input interface{}) (string, error) {
	switch v := input.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", &ParseError{Format: format, Err: fmt.Errorf("%s input must be text, got %T", format, input)}
	}
}

// formatScalar renders a scalar value as cell or element text.
func formatScalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatNumber(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}
