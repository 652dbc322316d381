package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avaxform/internal/util"
)

func TestParseDocument_SingleField(t *testing.T) {
	doc, err := ParseDocument([]byte(`{
		"title": "平均值",
		"code": "浮點數",
		"property": "",
		"regexp": "/^\\d+(\\.\\d+)?$/",
		"explain": "ignored"
	}`))
	require.NoError(t, err)

	assert.False(t, doc.IsMultiField())
	assert.Equal(t, "平均值", doc.Title)
	assert.Equal(t, "浮點數", doc.Code)
	assert.Equal(t, `/^\d+(\.\d+)?$/`, doc.Regexp)
	assert.False(t, doc.IsZero())
}

func TestParseDocument_FieldsAsObjectKeepOrder(t *testing.T) {
	doc, err := ParseDocument([]byte(`{
		"title": "Dataset",
		"properties": {
			"zeta": {"title": "Zeta", "code": "數字"},
			"alpha": {"title": "Alpha", "regexp": "/^(a|b)$/"},
			"mid": "日期"
		}
	}`))
	require.NoError(t, err)

	require.True(t, doc.IsMultiField())
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, doc.FieldNames())
	assert.Equal(t, "數字", doc.Fields[0].Code)
	assert.Equal(t, "/^(a|b)$/", doc.Fields[1].Regexp)
	assert.Equal(t, "日期", doc.Fields[2].Code)
}

func TestParseDocument_FieldsAsList(t *testing.T) {
	doc, err := ParseDocument([]byte(`{
		"fields": [
			{"name": "id", "type": "string", "pattern": "^[A-Z]\\d{9}$"},
			{"field": "count", "type": "integer"},
			{"id": 7, "code": "日期"},
			{"title": "unnamed entries are skipped"},
			"not an object"
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "count", "7"}, doc.FieldNames())
	assert.Equal(t, `/^[A-Z]\d{9}$/`, doc.Fields[0].Regexp)
	assert.Equal(t, "integer", doc.Fields[1].Code)
}

func TestParseDocument_MemberPrecedence(t *testing.T) {
	doc, err := ParseDocument([]byte(`{
		"properties": null,
		"fields": [{"name": "a"}],
		"columns": [{"name": "b"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, doc.FieldNames())
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: `<schema/>`},
		{name: "array root", input: `[{"title":"x"}]`},
		{name: "malformed fields object", input: `{"properties": {"a": }}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, util.ErrInvalidInput)
		})
	}
}

func TestDocument_DefinitionFor(t *testing.T) {
	doc := &Document{Fields: []Definition{{Name: "id"}, {Name: "person.name"}}}

	def, ok := doc.DefinitionFor("person.name")
	assert.True(t, ok)
	assert.Equal(t, "person.name", def.Name)

	def, ok = doc.DefinitionFor("owner.id")
	assert.True(t, ok)
	assert.Equal(t, "id", def.Name)

	_, ok = doc.DefinitionFor("missing")
	assert.False(t, ok)

	var nilDoc *Document
	_, ok = nilDoc.DefinitionFor("id")
	assert.False(t, ok)
}
