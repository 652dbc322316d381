package validation

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/encoding"
	"github.com/vyrodovalexey/avaxform/internal/observability"
	"github.com/vyrodovalexey/avaxform/internal/transform"
)

// Rule kinds.
const (
	KindRequired = "required"
	KindString   = "string"
	KindNumber   = "number"
	KindBoolean  = "boolean"
	KindArray    = "array"
	KindEmail    = "email"
	KindURL      = "url"
	KindDate     = "date"
	KindPhone    = "phone"
	KindRegex    = "regex"
	KindEnum     = "enum"
	KindLength   = "length"
	KindCustom   = "custom"
)

const defaultPatternCacheSize = 512

var (
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern     = regexp.MustCompile(`^09\d{8}$`)
	phoneSeparators  = regexp.MustCompile(`[-\s]`)
	compactDateShape = regexp.MustCompile(`^\d{8}$`)
)

// ValidateField checks one rule against record. It returns the error
// message and true when the rule fails.
func (e *Engine) ValidateField(
	ctx context.Context,
	record interface{},
	rule *config.ValidationRule,
	strict bool,
) (string, bool) {
	value, found := transform.GetPath(record, rule.Field)
	kind := normalizeKind(rule.Type)

	if kind == KindRequired {
		if isEmptyValue(value, found) {
			return message(rule, "field %s is required", rule.Field), true
		}
		return "", false
	}
	if isEmptyValue(value, found) {
		return "", false
	}

	switch kind {
	case KindString:
		if _, ok := value.(string); !ok {
			return message(rule, "field %s must be a string", rule.Field), true
		}
	case KindNumber:
		return checkNumber(rule, value)
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return message(rule, "field %s must be a boolean", rule.Field), true
		}
	case KindArray:
		if _, ok := value.([]interface{}); !ok {
			return message(rule, "field %s must be an array", rule.Field), true
		}
	case KindEmail:
		if !emailPattern.MatchString(valueText(value)) {
			return message(rule, "field %s must be a valid email address", rule.Field), true
		}
	case KindURL:
		if !isAbsoluteURL(valueText(value)) {
			return message(rule, "field %s must be a valid URL", rule.Field), true
		}
	case KindDate:
		return e.checkDate(rule, value, strict)
	case KindPhone:
		if !phonePattern.MatchString(phoneSeparators.ReplaceAllString(valueText(value), "")) {
			return message(rule, "field %s must be a valid mobile phone number", rule.Field), true
		}
	case KindRegex:
		return e.checkRegex(rule, value, strict)
	case KindEnum:
		if len(rule.Values) > 0 && !containsValue(rule.Values, value) {
			return message(rule, "field %s must be one of %s", rule.Field, joinValues(rule.Values)), true
		}
	case KindLength:
		return checkLength(rule, value)
	case KindCustom:
		return e.checkCustom(ctx, rule, record, value)
	case "":
	default:
		e.logger.Debug("unknown validation type",
			observability.String("field", rule.Field),
			observability.String("type", rule.Type))
		if strict {
			return message(rule, "field %s has unknown validation type %q", rule.Field, rule.Type), true
		}
	}
	return "", false
}

func checkNumber(rule *config.ValidationRule, value interface{}) (string, bool) {
	n := numberValue(value)
	if math.IsNaN(n) {
		return message(rule, "field %s must be a number", rule.Field), true
	}
	if rule.Min != nil && n < *rule.Min {
		return message(rule, "field %s must not be less than %s", rule.Field, encoding.FormatNumber(*rule.Min)), true
	}
	if rule.Max != nil && n > *rule.Max {
		return message(rule, "field %s must not be greater than %s", rule.Field, encoding.FormatNumber(*rule.Max)), true
	}
	return "", false
}

func checkLength(rule *config.ValidationRule, value interface{}) (string, bool) {
	length := 0
	switch v := value.(type) {
	case string:
		length = utf8.RuneCountInString(v)
	case []interface{}:
		length = len(v)
	}

	if rule.Min != nil && float64(length) < *rule.Min {
		return message(rule, "length of field %s must not be less than %s", rule.Field, encoding.FormatNumber(*rule.Min)), true
	}
	if rule.Max != nil && float64(length) > *rule.Max {
		return message(rule, "length of field %s must not exceed %s", rule.Field, encoding.FormatNumber(*rule.Max)), true
	}
	return "", false
}

// checkDate matches the pattern first when one is set, then rejects
// impossible YYYYMMDD dates. Without a pattern any date dateparse
// understands, or a numeric timestamp, is accepted.
func (e *Engine) checkDate(rule *config.ValidationRule, value interface{}, strict bool) (string, bool) {
	text, isString := value.(string)

	if rule.Pattern != "" {
		re, err := e.patterns.compile(rule.Pattern, rule.Flags)
		switch {
		case err != nil:
			if msg, failed := e.invalidPattern(rule, err, strict); failed {
				return msg, true
			}
		case !re.MatchString(valueText(value)):
			return message(rule, "field %s has an invalid date format", rule.Field), true
		}
		if isString && compactDateShape.MatchString(text) && !validCompactDate(text) {
			return message(rule, "field %s must be a valid date", rule.Field), true
		}
		return "", false
	}

	switch {
	case isString && compactDateShape.MatchString(text):
		if !validCompactDate(text) {
			return message(rule, "field %s must be a valid date", rule.Field), true
		}
	case isString:
		if _, err := dateparse.ParseAny(text); err != nil {
			return message(rule, "field %s must be a valid date", rule.Field), true
		}
	default:
		if _, ok := value.(float64); !ok {
			return message(rule, "field %s must be a valid date", rule.Field), true
		}
	}
	return "", false
}

// validCompactDate reports whether an 8-digit YYYYMMDD string names a real
// calendar day.
func validCompactDate(s string) bool {
	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func (e *Engine) checkRegex(rule *config.ValidationRule, value interface{}, strict bool) (string, bool) {
	if rule.Pattern == "" {
		return "", false
	}
	re, err := e.patterns.compile(rule.Pattern, rule.Flags)
	if err != nil {
		return e.invalidPattern(rule, err, strict)
	}
	if !re.MatchString(valueText(value)) {
		return message(rule, "field %s does not match the required format", rule.Field), true
	}
	return "", false
}

func (e *Engine) invalidPattern(rule *config.ValidationRule, err error, strict bool) (string, bool) {
	e.logger.Warn("invalid validation pattern",
		observability.String("field", rule.Field),
		observability.String("pattern", rule.Pattern),
		observability.Error(err))
	if strict {
		return message(rule, "field %s has an invalid pattern", rule.Field), true
	}
	return "", false
}

func (e *Engine) checkCustom(ctx context.Context, rule *config.ValidationRule, record, value interface{}) (string, bool) {
	if strings.TrimSpace(rule.Expression) == "" {
		return "", false
	}

	ok, err := e.evaluator.EvalBool(ctx, rule.Expression, map[string]interface{}{
		transform.VarValue:  value,
		transform.VarRecord: record,
	})
	if err != nil {
		GetValidationMetrics().customErrors.Inc()
		e.logger.Warn("custom validation expression failed",
			observability.String("field", rule.Field),
			observability.String("expression", rule.Expression),
			observability.Error(err))
		return message(rule, "field %s custom validation error", rule.Field), true
	}
	if !ok {
		return message(rule, "field %s failed validation", rule.Field), true
	}
	return "", false
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp", "ws", "wss":
		return u.Host != ""
	}
	return u.Opaque != "" || u.Host != "" || u.Path != ""
}

// isEmptyValue reports an absent, null or empty-string field.
func isEmptyValue(value interface{}, found bool) bool {
	if !found || value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

// numberValue converts a field to a number. Booleans count as 0 and 1;
// text must be numeric after trimming.
func numberValue(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || strings.EqualFold(s, "nan") {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// valueText is the text a pattern is matched against.
func valueText(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return encoding.FormatNumber(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// containsValue compares by type: strings to strings, numbers by value,
// booleans to booleans.
func containsValue(values []interface{}, value interface{}) bool {
	for _, candidate := range values {
		switch c := candidate.(type) {
		case string:
			if v, ok := value.(string); ok && v == c {
				return true
			}
		case bool:
			if v, ok := value.(bool); ok && v == c {
				return true
			}
		default:
			cf, cok := toFloat(candidate)
			vf, vok := toFloat(value)
			if cok && vok && cf == vf {
				return true
			}
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func joinValues(values []interface{}) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = valueText(v)
	}
	return strings.Join(parts, ", ")
}

// message returns the rule's own message, or the formatted default.
func message(rule *config.ValidationRule, format string, args ...interface{}) string {
	if rule.Message != "" {
		return rule.Message
	}
	return fmt.Sprintf(format, args...)
}

type patternEntry struct {
	re  *regexp.Regexp
	err error
}

// compile builds pattern with the i, m and s flags applied. Other flag
// letters are ignored.
func (c *patternCache) compile(pattern, flags string) (*regexp.Regexp, error) {
	key := flags + "/" + pattern

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return entry.re, entry.err
	}

	var prefix strings.Builder
	for _, f := range "ims" {
		if strings.ContainsRune(flags, f) {
			prefix.WriteRune(f)
		}
	}
	source := pattern
	if prefix.Len() > 0 {
		source = "(?" + prefix.String() + ")" + pattern
	}

	re, err := regexp.Compile(source)
	if err != nil {
		err = fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	c.mu.Lock()
	if len(c.entries) < c.max {
		c.entries[key] = patternEntry{re: re, err: err}
	}
	c.mu.Unlock()

	return re, err
}
