package schema

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyPattern(t *testing.T) {
	tests := []struct {
		name     string
		property string
		want     string
		wantOK   bool
	}{
		{name: "compact date", property: "[0000-9999][01-12][01-31]", want: CompactDatePattern, wantOK: true},
		{name: "compact date with prose", property: "格式為 [0000-9999][01-12][01-31]", want: CompactDatePattern, wantOK: true},
		{name: "compact time", property: "[00-23][00-59][00-59]", want: CompactTimePattern, wantOK: true},
		{name: "hour and minute", property: "[00-23][00-59]", want: HourMinutePattern, wantOK: true},
		{name: "embedded pattern", property: "format: /^[A-Z]{2}\\d{8}$/", want: `^[A-Z]{2}\d{8}$`, wantOK: true},
		{name: "single class", property: "[A-Z]", want: "^[A-Z]+$", wantOK: true},
		{name: "composite ranges", property: "[A-Z][1-2][00000000-99999999]", want: `^[A-Z][1-2]\d{8}$`, wantOK: true},
		{name: "anchored composite", property: "^[0-9][000-999]$", want: `^[0-9]\d{3}$`, wantOK: true},
		{name: "prose only", property: "free text description"},
		{name: "empty", property: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PropertyPattern(tt.property)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDerivedPatternsMatch(t *testing.T) {
	tests := []struct {
		pattern string
		accept  []string
		reject  []string
	}{
		{
			pattern: CompactDatePattern,
			accept:  []string{"19900101", "20231231"},
			reject:  []string{"1990-01-01", "19901301", "19900132", "1990010"},
		},
		{
			pattern: CompactTimePattern,
			accept:  []string{"000000", "235959"},
			reject:  []string{"240000", "126000", "12:00:00"},
		},
		{
			pattern: HourMinutePattern,
			accept:  []string{"0930", "2359"},
			reject:  []string{"2400", "930"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			re, err := regexp.Compile(tt.pattern)
			require.NoError(t, err)
			for _, s := range tt.accept {
				assert.True(t, re.MatchString(s), s)
			}
			for _, s := range tt.reject {
				assert.False(t, re.MatchString(s), s)
			}
		})
	}
}
