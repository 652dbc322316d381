package encoding

import (
	"bytes"
	"encoding/json"
	"strings"
)

type jsonCodec struct{}

// NewJSONCodec creates the json codec. Numbers decode to float64.
func NewJSONCodec() Codec {
	return jsonCodec{}
}

func (jsonCodec) Format() string      { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }

// Parse decodes JSON text. Values that are not text are taken to be
// already decoded and returned as is.
func (c jsonCodec) Parse(input interface{}) (interface{}, error) {
	var data []byte
	switch v := input.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return input, nil
	}

	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &ParseError{Format: c.Format(), Err: err}
	}
	return out, nil
}

// Serialize writes indented JSON without HTML escaping. A string value is
// returned verbatim since it already is the rendered payload.
func (jsonCodec) Serialize(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
