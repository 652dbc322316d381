package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  interface{}
	}{
		{name: "empty", input: "", want: ""},
		{name: "whitespace only", input: "   ", want: ""},
		{name: "true", input: "true", want: true},
		{name: "padded false", input: " false ", want: false},
		{name: "integer", input: "42", want: float64(42)},
		{name: "padded decimal", input: " 3.14 ", want: 3.14},
		{name: "negative", input: "-7", want: float64(-7)},
		{name: "leading zero kept", input: "042", want: "042"},
		{name: "exponent text kept", input: "1e3", want: "1e3"},
		{name: "trailing zero kept", input: "1.50", want: "1.50"},
		{name: "infinity kept", input: "Infinity", want: "Infinity"},
		{name: "object", input: `{"a":1}`, want: map[string]interface{}{"a": float64(1)}},
		{name: "list", input: `[1,"x"]`, want: []interface{}{float64(1), "x"}},
		{name: "broken object", input: "{not json}", want: "{not json}"},
		{name: "plain text untouched", input: " Chang ", want: " Chang "},
		{name: "TRUE is text", input: "TRUE", want: "TRUE"},
		{name: "non-string", input: float64(5), want: float64(5)},
		{name: "nil", input: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoerceValue(tt.input))
		})
	}
}
