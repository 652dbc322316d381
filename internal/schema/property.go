package schema

import (
	"regexp"
	"strconv"
	"strings"
)

// Patterns derived from the registry's bracket notation.
const (
	CompactDatePattern = `^[0-9]{4}(0[1-9]|1[0-2])(0[1-9]|[12][0-9]|3[01])$`
	CompactTimePattern = `^([01][0-9]|2[0-3])([0-5][0-9])([0-5][0-9])$`
	HourMinutePattern  = `^([01][0-9]|2[0-3])([0-5][0-9])$`
)

var (
	compactDateNotation = regexp.MustCompile(`\[0000-9999\]\[01-12\]\[01-31\]`)
	compactTimeNotation = regexp.MustCompile(`\[00-23\]\[00-59\]\[00-59\]`)
	hourMinuteNotation  = regexp.MustCompile(`\[00-23\]\[00-59\]`)
	embeddedRegexp      = regexp.MustCompile(`/(.+?)/`)
	singleClass         = regexp.MustCompile(`^\[[^\]]+\]$`)
	digitRange          = regexp.MustCompile(`\[(\d+)-(\d+)\]`)
)

// propertyRule derives a pattern from a free-text property description.
type propertyRule func(property string) (string, bool)

// propertyRules are tried in order; the first match wins.
var propertyRules = []propertyRule{
	fixedNotation(compactDateNotation, CompactDatePattern),
	fixedNotation(compactTimeNotation, CompactTimePattern),
	fixedNotation(hourMinuteNotation, HourMinutePattern),
	embeddedPattern,
	singleCharacterClass,
	compositeBrackets,
}

// PropertyPattern derives a regular expression from a property
// description such as "[0000-9999][01-12][01-31]" or "format: /^[A-Z]{2}$/".
// It reports false when the description holds no recognisable notation.
func PropertyPattern(property string) (string, bool) {
	property = strings.TrimSpace(property)
	if property == "" {
		return "", false
	}
	for _, rule := range propertyRules {
		if pattern, ok := rule(property); ok {
			return pattern, true
		}
	}
	return "", false
}

func fixedNotation(notation *regexp.Regexp, pattern string) propertyRule {
	return func(property string) (string, bool) {
		if notation.MatchString(property) {
			return pattern, true
		}
		return "", false
	}
}

func embeddedPattern(property string) (string, bool) {
	m := embeddedRegexp.FindStringSubmatch(property)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func singleCharacterClass(property string) (string, bool) {
	if !singleClass.MatchString(property) || strings.Contains(property, "][") {
		return "", false
	}
	return "^" + property + "+$", true
}

// compositeBrackets turns notations like "[A-Z][1-2][00000000-99999999]"
// into an anchored pattern. Equal-width digit ranges of two or more digits
// become fixed-width digit runs.
func compositeBrackets(property string) (string, bool) {
	if !strings.Contains(property, "[") || !strings.Contains(property, "]") {
		return "", false
	}

	pattern := digitRange.ReplaceAllStringFunc(property, func(m string) string {
		parts := digitRange.FindStringSubmatch(m)
		if len(parts[1]) == len(parts[2]) && len(parts[1]) > 1 {
			return `\d{` + strconv.Itoa(len(parts[1])) + `}`
		}
		return m
	})

	if !strings.HasPrefix(pattern, "^") {
		pattern = "^" + pattern
	}
	if !strings.HasSuffix(pattern, "$") {
		pattern += "$"
	}
	return pattern, true
}
