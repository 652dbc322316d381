package transform

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/aymerick/raymond"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vyrodovalexey/avaxform/internal/encoding"
)

// HelperRegistry is the fixed set of template helpers. It is built once and
// shared read-only by every Engine; each parsed template gets the helpers
// bound to it.
type HelperRegistry struct {
	helpers map[string]interface{}
	now     func() time.Time
}

// HelperOption configures a HelperRegistry.
type HelperOption func(*HelperRegistry)

// WithClock sets the time source of the now helper.
func WithClock(now func() time.Time) HelperOption {
	return func(r *HelperRegistry) {
		r.now = now
	}
}

// NewHelperRegistry creates the registry with the default helper set.
//
// Optional trailing arguments may be given positionally or, for now,
// formatDate and dateFormat, as hash parameters: {{now "YYYYMMDD"}} and
// {{now format="YYYYMMDD"}} are equivalent.
func NewHelperRegistry(opts ...HelperOption) *HelperRegistry {
	r := &HelperRegistry{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}

	r.helpers = map[string]interface{}{
		"uppercase":  helperUppercase,
		"lowercase":  helperLowercase,
		"titleCase":  helperTitle,
		"json":       helperJSON,
		"default":    helperDefault,
		"math":       helperMath,
		"add":        helperAdd,
		"subtract":   helperSubtract,
		"multiply":   helperMultiply,
		"divide":     helperDivide,
		"concat":     helperConcat,
		"trim":       helperTrim,
		"replace":    helperReplace,
		"substring":  helperSubstring,
		"eq":         helperEq,
		"ne":         helperNe,
		"gt":         helperGt,
		"gte":        helperGte,
		"lt":         helperLt,
		"lte":        helperLte,
		"dateFormat": helperDateFormat,
		"formatDate": helperFormatDate,
		"now":        r.helperNow,
	}
	return r
}

// Names returns the helper names, sorted.
func (r *HelperRegistry) Names() []string {
	names := make([]string, 0, len(r.helpers))
	for name := range r.helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *HelperRegistry) bind(tpl *raymond.Template) {
	tpl.RegisterHelpers(r.helpers)
}

func helperUppercase(v interface{}) string {
	return strings.ToUpper(toText(v))
}

func helperLowercase(v interface{}) string {
	return strings.ToLower(toText(v))
}

func helperTitle(v interface{}) string {
	// Casers keep state and are not shared.
	return cases.Title(language.Und).String(toText(v))
}

func helperJSON(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func helperDefault(v, fallback interface{}) interface{} {
	fallback, _ = optionalArg(fallback)
	if v == nil {
		return fallback
	}
	if s, ok := v.(string); ok && s == "" {
		return fallback
	}
	return v
}

func helperMath(left interface{}, operator string, right interface{}) interface{} {
	right, _ = optionalArg(right)
	switch operator {
	case "+":
		return helperAdd(left, right)
	case "-":
		return helperSubtract(left, right)
	case "*":
		return helperMultiply(left, right)
	case "/":
		return helperDivide(left, right)
	default:
		return nil
	}
}

func helperAdd(a, b interface{}) interface{} {
	b, _ = optionalArg(b)
	return numberText(leadingFloat(a) + leadingFloat(b))
}

func helperSubtract(a, b interface{}) interface{} {
	b, _ = optionalArg(b)
	return numberText(leadingFloat(a) - leadingFloat(b))
}

func helperMultiply(a, b interface{}) interface{} {
	b, _ = optionalArg(b)
	return numberText(leadingFloat(a) * leadingFloat(b))
}

func helperDivide(a, b interface{}) interface{} {
	b, _ = optionalArg(b)
	divisor := leadingFloat(b)
	if divisor == 0 {
		return nil
	}
	return numberText(leadingFloat(a) / divisor)
}

func helperConcat(a, b interface{}) string {
	b, _ = optionalArg(b)
	return toText(a) + toText(b)
}

func helperTrim(v interface{}) string {
	return strings.TrimSpace(toText(v))
}

func helperReplace(v interface{}, search, replacement string) string {
	s := toText(v)
	re, err := regexp.Compile(search)
	if err != nil {
		return s
	}
	return re.ReplaceAllString(s, replacement)
}

func helperSubstring(v, start, end interface{}) string {
	end, _ = optionalArg(end)
	runes := []rune(toText(v))
	clamp := func(x interface{}) int {
		f := leadingFloat(x)
		if math.IsNaN(f) || f < 0 {
			return 0
		}
		if f > float64(len(runes)) {
			return len(runes)
		}
		return int(f)
	}

	from, to := clamp(start), clamp(end)
	if end == nil {
		to = len(runes)
	}
	if from > to {
		from, to = to, from
	}
	return string(runes[from:to])
}

func helperEq(a, b interface{}) bool {
	return strictEqual(a, b)
}

func helperNe(a, b interface{}) bool {
	return !strictEqual(a, b)
}

func helperGt(a, b interface{}) bool {
	c, ok := compareValues(a, b)
	return ok && c > 0
}

func helperGte(a, b interface{}) bool {
	c, ok := compareValues(a, b)
	return ok && c >= 0
}

func helperLt(a, b interface{}) bool {
	c, ok := compareValues(a, b)
	return ok && c < 0
}

func helperLte(a, b interface{}) bool {
	c, ok := compareValues(a, b)
	return ok && c <= 0
}

// helperDateFormat renders a date for a locale, en-US by default.
func helperDateFormat(v, locale interface{}) interface{} {
	if isBlank(v) {
		return ""
	}
	t, ok := parseHelperDate(v)
	if !ok {
		return v
	}

	return formatLocaleDate(t, optionalText(locale, "locale"))
}

func formatLocaleDate(t time.Time, locale string) string {
	switch {
	case locale == "" || strings.EqualFold(locale, "en-US"):
		return t.Format("01/02/2006")
	case strings.HasPrefix(locale, "en"), strings.HasPrefix(locale, "fr"), strings.HasPrefix(locale, "de"):
		return t.Format("02/01/2006")
	case strings.HasPrefix(locale, "zh"), strings.HasPrefix(locale, "ja"):
		return t.Format("2006/01/02")
	default:
		return t.Format("2006-01-02")
	}
}

func helperFormatDate(v, format interface{}) interface{} {
	if isBlank(v) {
		return ""
	}
	t, ok := parseHelperDate(v)
	if !ok {
		return v
	}
	return formatDateLayout(t, optionalText(format, "format"), "2006-01-02")
}

func (r *HelperRegistry) helperNow(format interface{}) string {
	return formatDateLayout(r.now().UTC(), optionalText(format, "format"), "2006-01-02T15:04:05.000Z")
}

// optionalArg unpacks an optional trailing parameter. When the template
// omits the argument raymond binds the helper options in its place, which
// are returned instead so hash arguments stay reachable.
func optionalArg(v interface{}) (interface{}, *raymond.Options) {
	if options, ok := v.(*raymond.Options); ok {
		return nil, options
	}
	return v, nil
}

// optionalText returns an optional argument as text, falling back to the
// hash argument named key.
func optionalText(v interface{}, key string) string {
	arg, options := optionalArg(v)
	if options != nil {
		return options.HashStr(key)
	}
	return toText(arg)
}

func formatDateLayout(t time.Time, format, fallback string) string {
	switch format {
	case "YYYY-MM-DD":
		return t.Format("2006-01-02")
	case "YYYY/MM/DD":
		return t.Format("2006/01/02")
	case "YYYYMMDD":
		return t.Format("20060102")
	default:
		return t.Format(fallback)
	}
}

var eightDigitDate = regexp.MustCompile(`^\d{8}$`)

// parseHelperDate accepts YYYYMMDD strings, any date text dateparse
// understands, and numbers as millisecond timestamps. Dates are UTC.
func parseHelperDate(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		if eightDigitDate.MatchString(t) {
			d, err := time.ParseInLocation("20060102", t, time.UTC)
			return d, err == nil
		}
		d, err := dateparse.ParseIn(t, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return d.UTC(), true
	default:
		f, ok := toNumber(v)
		if !ok {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(f)).UTC(), true
	}
}

func isBlank(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	default:
		f, ok := toNumber(v)
		return ok && f == 0
	}
}

// toText renders a helper argument the way it would print in a template.
func toText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	}
	if f, ok := toNumber(v); ok {
		return encoding.FormatNumber(f)
	}
	return raymond.Str(v)
}

// toNumber converts numeric Go values. Template literals arrive as int,
// decoded payloads as float64.
func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// leadingFloat parses the longest numeric prefix of v, NaN when there is
// none.
func leadingFloat(v interface{}) float64 {
	if f, ok := toNumber(v); ok {
		return f
	}
	s := strings.TrimSpace(toText(v))
	if m := leadingNumber.FindString(s); m != "" {
		if f, err := strconv.ParseFloat(m, 64); err == nil {
			return f
		}
	}
	switch {
	case strings.HasPrefix(s, "Infinity"), strings.HasPrefix(s, "+Infinity"):
		return math.Inf(1)
	case strings.HasPrefix(s, "-Infinity"):
		return math.Inf(-1)
	}
	return math.NaN()
}

// numberValue converts an operand for relational comparison. Blank text is
// zero; text that is not entirely numeric is NaN.
func numberValue(v interface{}) float64 {
	if f, ok := toNumber(v); ok {
		return f
	}
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

func numberText(f float64) string {
	return encoding.FormatNumber(f)
}

func strictEqual(a, b interface{}) bool {
	if fa, ok := toNumber(a); ok {
		fb, ok := toNumber(b)
		return ok && fa == fb
	}
	switch ta := a.(type) {
	case nil:
		return b == nil
	case string:
		tb, ok := b.(string)
		return ok && ta == tb
	case bool:
		tb, ok := b.(bool)
		return ok && ta == tb
	default:
		return false
	}
}

// compareValues orders two operands. Two strings compare lexically,
// anything else numerically. ok is false when either side is NaN.
func compareValues(a, b interface{}) (int, bool) {
	sa, aIsString := a.(string)
	sb, bIsString := b.(string)
	if aIsString && bIsString {
		return strings.Compare(sa, sb), true
	}

	fa, fb := numberValue(a), numberValue(b)
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return 0, false
	}
	switch {
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	default:
		return 0, true
	}
}
