package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/validation"
)

// Category is the coarse data category of a definition.
type Category int

// Categories.
const (
	CategoryUnknown Category = iota
	CategoryString
	CategoryNumber
	CategoryDate
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryString:
		return "string"
	case CategoryNumber:
		return "number"
	case CategoryDate:
		return "date"
	default:
		return "unknown"
	}
}

// categoryNames maps registry codes, English and native, to categories.
var categoryNames = map[string]Category{
	"string":    CategoryString,
	"text":      CategoryString,
	"字串":        CategoryString,
	"number":    CategoryNumber,
	"numeric":   CategoryNumber,
	"float":     CategoryNumber,
	"double":    CategoryNumber,
	"decimal":   CategoryNumber,
	"integer":   CategoryNumber,
	"int":       CategoryNumber,
	"數字":        CategoryNumber,
	"浮點數":       CategoryNumber,
	"整數":        CategoryNumber,
	"date":      CategoryDate,
	"datetime":  CategoryDate,
	"date-time": CategoryDate,
	"日期":        CategoryDate,
}

// CategoryOf classifies a registry code.
func CategoryOf(code string) Category {
	return categoryNames[strings.ToLower(strings.TrimSpace(code))]
}

var (
	delimitedRegexp = regexp.MustCompile(`^/(.*)/([igmu]*)$`)
	enumAlternation = regexp.MustCompile(`^\^?\(([^)]+)\)\$?$`)
	lengthBounds    = regexp.MustCompile(`\^\.?\{(\d*),(\d*)\}\$?`)
)

// Strategy recognises a definition and produces a rule for it. Field and
// SchemaURI are filled in by Compile.
type Strategy func(def Definition) (config.ValidationRule, bool)

// Strategies is the compile chain, tried in order.
var Strategies = []Strategy{
	FromDelimitedRegexp,
	FromNamedValidator,
	FromCategory,
}

// Compile converts def into a validation rule for field. It never fails:
// a definition nothing recognises compiles to a string rule.
func Compile(def Definition, field, uri string) config.ValidationRule {
	def.Title = strings.TrimSpace(def.Title)
	if def.Title == "" {
		def.Title = field
	}
	def.Code = strings.TrimSpace(def.Code)
	def.Property = strings.TrimSpace(def.Property)
	def.Regexp = strings.TrimSpace(def.Regexp)

	var rule config.ValidationRule
	for _, strategy := range Strategies {
		if r, ok := strategy(def); ok {
			rule = r
			break
		}
	}
	if rule.Type == "" {
		rule, _ = FromCategory(def)
	}

	rule.Field = field
	rule.SchemaURI = uri
	return rule
}

// CompileDocument compiles the definition of field within doc. Documents
// without a matching per-field entry compile from their own definition.
func CompileDocument(doc *Document, field, uri string) config.ValidationRule {
	if doc == nil {
		return Compile(Definition{}, field, uri)
	}
	if def, ok := doc.DefinitionFor(field); ok {
		return Compile(def, field, uri)
	}
	return Compile(doc.Definition, field, uri)
}

// ExpandDocument compiles one rule per field of a multi-field document.
// A single-field document yields one rule named after its name or title,
// or nothing when it has neither.
func ExpandDocument(doc *Document, uri string) []config.ValidationRule {
	if doc == nil {
		return nil
	}
	if doc.IsMultiField() {
		rules := make([]config.ValidationRule, 0, len(doc.Fields))
		for _, def := range doc.Fields {
			rules = append(rules, Compile(def, def.Name, uri))
		}
		return rules
	}

	field := strings.TrimSpace(doc.Name)
	if field == "" {
		field = strings.TrimSpace(doc.Title)
	}
	if field == "" {
		return nil
	}
	return []config.ValidationRule{Compile(doc.Definition, field, uri)}
}

// SplitDelimited splits "/pattern/flags" into its parts.
func SplitDelimited(s string) (pattern, flags string, ok bool) {
	m := delimitedRegexp.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// EnumValues extracts the alternatives of a pattern shaped like
// "^(a|b|c)$".
func EnumValues(pattern string) ([]string, bool) {
	m := enumAlternation.FindStringSubmatch(pattern)
	if m == nil {
		return nil, false
	}
	parts := strings.Split(m[1], "|")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		values = append(values, strings.TrimSpace(strings.ReplaceAll(p, `\/`, "/")))
	}
	return values, true
}

// LengthBounds extracts the bounds of a pattern shaped like "^.{min,max}$".
// Either bound may be absent.
func LengthBounds(pattern string) (minLen, maxLen *float64, ok bool) {
	m := lengthBounds.FindStringSubmatch(pattern)
	if m == nil {
		return nil, nil, false
	}
	return parseBound(m[1]), parseBound(m[2]), true
}

func parseBound(s string) *float64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &n
}

// FromDelimitedRegexp handles a regexp member holding "/pattern/flags".
func FromDelimitedRegexp(def Definition) (config.ValidationRule, bool) {
	pattern, flags, ok := SplitDelimited(def.Regexp)
	if !ok {
		return config.ValidationRule{}, false
	}

	if values, ok := EnumValues(pattern); ok {
		rule := config.ValidationRule{
			Type:    validation.KindEnum,
			Message: fmt.Sprintf("field %s must be one of %s", def.Title, strings.Join(values, ", ")),
		}
		for _, v := range values {
			rule.Values = append(rule.Values, v)
		}
		return rule, true
	}

	category := CategoryOf(def.Code)

	if minLen, maxLen, ok := LengthBounds(pattern); ok && category == CategoryString {
		return config.ValidationRule{
			Type:    validation.KindLength,
			Min:     minLen,
			Max:     maxLen,
			Pattern: pattern,
			Message: lengthMessage(def.Title, minLen, maxLen),
		}, true
	}

	switch category {
	case CategoryNumber:
		return config.ValidationRule{
			Type:    validation.KindNumber,
			Pattern: pattern,
			Message: fmt.Sprintf("field %s must be a valid number", def.Title),
		}, true
	case CategoryDate:
		return config.ValidationRule{
			Type:    validation.KindDate,
			Pattern: pattern,
			Message: fmt.Sprintf("field %s must be a valid date", def.Title),
		}, true
	}

	return config.ValidationRule{
		Type:    validation.KindRegex,
		Pattern: pattern,
		Flags:   flags,
		Message: fmt.Sprintf("field %s does not match the required format", def.Title),
	}, true
}

func lengthMessage(title string, minLen, maxLen *float64) string {
	switch {
	case minLen != nil && maxLen != nil:
		return fmt.Sprintf("length of field %s must be between %s and %s",
			title, strconv.FormatFloat(*minLen, 'f', -1, 64), strconv.FormatFloat(*maxLen, 'f', -1, 64))
	case maxLen != nil:
		return fmt.Sprintf("length of field %s must not exceed %s",
			title, strconv.FormatFloat(*maxLen, 'f', -1, 64))
	case minLen != nil:
		return fmt.Sprintf("length of field %s must be at least %s",
			title, strconv.FormatFloat(*minLen, 'f', -1, 64))
	default:
		return ""
	}
}

// FromNamedValidator handles a regexp member naming a registry-side
// validator, such as "validateDate". The actual constraint is then derived
// from the property description.
func FromNamedValidator(def Definition) (config.ValidationRule, bool) {
	if def.Regexp == "" || def.Property == "" {
		return config.ValidationRule{}, false
	}
	if _, _, delimited := SplitDelimited(def.Regexp); delimited {
		return config.ValidationRule{}, false
	}

	pattern, ok := PropertyPattern(def.Property)
	if !ok {
		return config.ValidationRule{}, false
	}
	return config.ValidationRule{
		Type:             validation.KindRegex,
		Pattern:          pattern,
		ValidatorName:    def.Regexp,
		PropertyOriginal: def.Property,
		Message:          fmt.Sprintf("field %s does not match the required format", def.Title),
	}, true
}

// FromCategory falls back to the coarse category. It always matches.
func FromCategory(def Definition) (config.ValidationRule, bool) {
	switch CategoryOf(def.Code) {
	case CategoryString:
		return config.ValidationRule{
			Type:    validation.KindString,
			Message: fmt.Sprintf("field %s must be a string", def.Title),
		}, true
	case CategoryNumber:
		return config.ValidationRule{
			Type:    validation.KindNumber,
			Message: fmt.Sprintf("field %s must be a number", def.Title),
		}, true
	case CategoryDate:
		return config.ValidationRule{
			Type:    validation.KindDate,
			Message: fmt.Sprintf("field %s must be a valid date", def.Title),
		}, true
	default:
		return config.ValidationRule{
			Type:    validation.KindString,
			Message: fmt.Sprintf("field %s failed validation", def.Title),
		}, true
	}
}
