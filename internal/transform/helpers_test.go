package transform

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelperRegistry_Names(t *testing.T) {
	names := NewHelperRegistry().Names()

	for _, want := range []string{
		"uppercase", "lowercase", "titleCase", "json", "default", "math",
		"add", "subtract", "multiply", "divide", "concat", "trim", "replace",
		"substring", "eq", "ne", "gt", "gte", "lt", "lte",
		"dateFormat", "formatDate", "now",
	} {
		assert.Contains(t, names, want)
	}
	assert.IsNonDecreasing(t, names)
}

func TestStringHelpers(t *testing.T) {
	assert.Equal(t, "CHANG", helperUppercase("Chang"))
	assert.Equal(t, "", helperUppercase(nil))
	assert.Equal(t, "chang", helperLowercase("CHANG"))
	assert.Equal(t, "Hello World", helperTitle("hello world"))
	assert.Equal(t, "ab", helperConcat("a", "b"))
	assert.Equal(t, "a42", helperConcat("a", float64(42)))
	assert.Equal(t, "x", helperTrim("  x \n"))
	assert.Equal(t, "a_b_c", helperReplace("a-b-c", "-", "_"))
	assert.Equal(t, "a-b", helperReplace("a-b", "(", "_"))
	assert.Equal(t, "{\n  \"a\": \"<b>\"\n}", helperJSON(map[string]interface{}{"a": "<b>"}))
}

func TestHelperSubstring(t *testing.T) {
	tests := []struct {
		name       string
		start, end interface{}
		want       string
	}{
		{name: "range", start: 1, end: 3, want: "el"},
		{name: "swapped", start: 3, end: 1, want: "el"},
		{name: "no end", start: 2, end: nil, want: "llo"},
		{name: "clamped", start: -2, end: 99, want: "hello"},
		{name: "numeric text", start: "1", end: "2", want: "e"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, helperSubstring("hello", tt.start, tt.end))
		})
	}
}

func TestMathHelpers(t *testing.T) {
	assert.Equal(t, "5", helperAdd(float64(2), "3"))
	assert.Equal(t, "-1", helperSubtract("2", 3))
	assert.Equal(t, "7.5", helperMultiply("2.5", 3))
	assert.Equal(t, "0.5", helperDivide(1, 2))
	assert.Nil(t, helperDivide(1, 0))
	assert.Equal(t, "6", helperMath("2", "*", "3"))
	assert.Nil(t, helperMath("2", "%", "3"))
	assert.Equal(t, "NaN", helperAdd("abc", 1))
	assert.Equal(t, "12", helperAdd("10px", 2))
	assert.True(t, math.IsNaN(leadingFloat(nil)))
}

func TestComparisonHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{name: "eq strings", got: helperEq("a", "a"), want: true},
		{name: "eq int literal and decoded float", got: helperEq(float64(30), 30), want: true},
		{name: "eq is strict across types", got: helperEq("30", float64(30)), want: false},
		{name: "eq nil", got: helperEq(nil, nil), want: true},
		{name: "ne", got: helperNe("a", "b"), want: true},
		{name: "gt numbers", got: helperGt(float64(10), 9), want: true},
		{name: "gt strings compare lexically", got: helperGt("10", "9"), want: false},
		{name: "gt mixed converts text", got: helperGt(float64(10), "9"), want: true},
		{name: "gte equal", got: helperGte(5, float64(5)), want: true},
		{name: "lt NaN is false", got: helperLt("abc", 5), want: false},
		{name: "lte", got: helperLte(1, 2), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestHelperDefault(t *testing.T) {
	assert.Equal(t, "x", helperDefault(nil, "x"))
	assert.Equal(t, "x", helperDefault("", "x"))
	assert.Equal(t, float64(0), helperDefault(float64(0), "x"))
	assert.Equal(t, "v", helperDefault("v", "x"))
}

func TestHelperFormatDate(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		format string
		want   interface{}
	}{
		{name: "compact input", value: "19900115", format: "YYYY/MM/DD", want: "1990/01/15"},
		{name: "iso input", value: "2024-03-05T10:00:00Z", format: "YYYYMMDD", want: "20240305"},
		{name: "dashed output", value: "20000229", format: "YYYY-MM-DD", want: "2000-02-29"},
		{name: "unknown format gives iso date", value: "20000229", format: "DD.MM", want: "2000-02-29"},
		{name: "unparseable returned", value: "garbage", format: "YYYY-MM-DD", want: "garbage"},
		{name: "empty", value: "", format: "YYYY-MM-DD", want: ""},
		{name: "millisecond timestamp", value: float64(0), format: "YYYY-MM-DD", want: ""},
		{name: "timestamp", value: float64(86400000), format: "YYYY-MM-DD", want: "1970-01-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, helperFormatDate(tt.value, tt.format))
		})
	}
}

func TestHelpers_ThroughEngine(t *testing.T) {
	fixed := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	engine := NewEngine(NewHelperRegistry(WithClock(func() time.Time { return fixed })))

	tests := []struct {
		name     string
		template string
		data     map[string]interface{}
		want     string
	}{
		{name: "now", template: "{{now}}", want: "2024-01-15T10:30:00.000Z"},
		{name: "now with format", template: `{{now format="YYYYMMDD"}}`, want: "20240115"},
		{name: "dateFormat default locale", template: "{{dateFormat d}}", data: map[string]interface{}{"d": "20240315"}, want: "03/15/2024"},
		{name: "dateFormat zh locale", template: `{{dateFormat d locale="zh-TW"}}`, data: map[string]interface{}{"d": "20240315"}, want: "2024/03/15"},
		{name: "nested concat", template: `{{concat (concat first " ") last}}`, data: map[string]interface{}{"first": "Ada", "last": "Lovelace"}, want: "Ada Lovelace"},
		{name: "math", template: `{{math price "*" qty}}`, data: map[string]interface{}{"price": float64(2.5), "qty": float64(4)}, want: "10"},
		{name: "eq in block", template: `{{#if (eq status "active")}}on{{else}}off{{/if}}`, data: map[string]interface{}{"status": "active"}, want: "on"},
		{name: "default", template: `{{default nickname "n/a"}}`, data: map[string]interface{}{}, want: "n/a"},
		{name: "titleCase", template: `{{titleCase city}}`, data: map[string]interface{}{"city": "new taipei"}, want: "New Taipei"},
		{name: "substring without end", template: `{{substring first 0}}`, data: map[string]interface{}{"first": "Ada"}, want: "Ada"},
		{name: "substring with end", template: `{{substring first 1 2}}`, data: map[string]interface{}{"first": "Ada"}, want: "d"},
		{name: "formatDate without format", template: `{{formatDate born}}`, data: map[string]interface{}{"born": "19900115"}, want: "1990-01-15"},
		{name: "formatDate hash format", template: `{{formatDate born format="YYYYMMDD"}}`, data: map[string]interface{}{"born": "1990-01-15"}, want: "19900115"},
		{name: "now positional format", template: `{{now "YYYYMMDD"}}`, want: "20240115"},
		{name: "now positional dashed format", template: `{{now "YYYY-MM-DD"}}`, want: "2024-01-15"},
		{name: "dateFormat positional locale", template: `{{dateFormat d "en-GB"}}`, data: map[string]interface{}{"d": "20240315"}, want: "15/03/2024"},
		{name: "default without fallback", template: `[{{default nickname}}]`, data: map[string]interface{}{}, want: "[]"},
		{name: "default without fallback keeps value", template: `{{default nickname}}`, data: map[string]interface{}{"nickname": "Ada"}, want: "Ada"},
		{name: "concat single value", template: `{{concat first}}`, data: map[string]interface{}{"first": "Ada"}, want: "Ada"},
		{name: "add missing operand", template: `{{add qty}}`, data: map[string]interface{}{"qty": float64(2)}, want: "NaN"},
		{name: "math missing operand", template: `{{math qty "+"}}`, data: map[string]interface{}{"qty": float64(2)}, want: "NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := engine.RenderString(tt.template, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}
