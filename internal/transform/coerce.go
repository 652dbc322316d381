package transform

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/avaxform/internal/encoding"
)

// CoerceValue converts rendered template text into a typed value.
// Non-string values are returned unchanged. For strings, surrounding
// whitespace is ignored when deciding the type:
//   - "" stays ""
//   - "true" and "false" become booleans
//   - numeric text whose canonical form equals the text becomes float64
//   - {...} or [...] that parses as JSON becomes the parsed value
//
// Anything else is returned as the original string.
func CoerceValue(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}

	trimmed := strings.TrimSpace(s)
	switch trimmed {
	case "":
		return ""
	case "true":
		return true
	case "false":
		return false
	}

	if f, err := strconv.ParseFloat(trimmed, 64); err == nil &&
		!math.IsInf(f, 0) && !math.IsNaN(f) &&
		encoding.FormatNumber(f) == trimmed {
		return f
	}

	if looksLikeJSONContainer(trimmed) {
		var parsed interface{}
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			return parsed
		}
	}

	return s
}

func looksLikeJSONContainer(s string) bool {
	return (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"))
}
