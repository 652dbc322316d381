package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizePath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{path: "", want: nil},
		{path: "name", want: []string{"name"}},
		{path: "a.b[0].c", want: []string{"a", "b", "0", "c"}},
		{path: "a..b.", want: []string{"a", "b"}},
		{path: "matrix[1][2]", want: []string{"matrix", "1", "2"}},
		{path: "a[x].b", want: []string{"a", "x", "b"}},
		{path: "a[].b", want: []string{"a", "b"}},
		{path: "items.0.id", want: []string{"items", "0", "id"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenizePath(tt.path))
		})
	}
}

func TestGetPath(t *testing.T) {
	doc := map[string]interface{}{
		"a": map[string]interface{}{
			"b": []interface{}{
				map[string]interface{}{"c": float64(1)},
			},
			"nothing": nil,
		},
		"name": "Chang",
	}

	tests := []struct {
		name      string
		path      string
		want      interface{}
		wantFound bool
	}{
		{name: "top level", path: "name", want: "Chang", wantFound: true},
		{name: "bracket index", path: "a.b[0].c", want: float64(1), wantFound: true},
		{name: "dotted index", path: "a.b.0.c", want: float64(1), wantFound: true},
		{name: "present null", path: "a.nothing", want: nil, wantFound: true},
		{name: "missing key", path: "a.x", wantFound: false},
		{name: "index out of range", path: "a.b[5]", wantFound: false},
		{name: "non-numeric list key", path: "a.b.first", wantFound: false},
		{name: "through scalar", path: "name.first", wantFound: false},
		{name: "through null", path: "a.nothing.deeper", wantFound: false},
		{name: "empty path", path: "", wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := GetPath(doc, tt.path)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetPath(t *testing.T) {
	tests := []struct {
		name   string
		target interface{}
		path   string
		value  interface{}
		want   interface{}
	}{
		{
			name:   "nested maps",
			target: map[string]interface{}{},
			path:   "person.fullName",
			value:  "Chang",
			want:   map[string]interface{}{"person": map[string]interface{}{"fullName": "Chang"}},
		},
		{
			name:   "list created for numeric next segment",
			target: map[string]interface{}{},
			path:   "a.b[0].c",
			value:  float64(1),
			want: map[string]interface{}{"a": map[string]interface{}{
				"b": []interface{}{map[string]interface{}{"c": float64(1)}},
			}},
		},
		{
			name:   "list extended with nulls",
			target: map[string]interface{}{},
			path:   "a[2]",
			value:  "x",
			want:   map[string]interface{}{"a": []interface{}{nil, nil, "x"}},
		},
		{
			name:   "numeric key on existing map",
			target: map[string]interface{}{"a": map[string]interface{}{}},
			path:   "a.0",
			value:  "x",
			want:   map[string]interface{}{"a": map[string]interface{}{"0": "x"}},
		},
		{
			name:   "non-numeric key on list is dropped",
			target: map[string]interface{}{"a": []interface{}{}},
			path:   "a.b",
			value:  "x",
			want:   map[string]interface{}{"a": []interface{}{}},
		},
		{
			name:   "scalar intermediate replaced",
			target: map[string]interface{}{"a": "s"},
			path:   "a.b",
			value:  true,
			want:   map[string]interface{}{"a": map[string]interface{}{"b": true}},
		},
		{
			name:   "existing sibling kept",
			target: map[string]interface{}{"a": map[string]interface{}{"x": "1"}},
			path:   "a.y",
			value:  "2",
			want:   map[string]interface{}{"a": map[string]interface{}{"x": "1", "y": "2"}},
		},
		{
			name:   "nil target becomes map",
			target: nil,
			path:   "k",
			value:  "v",
			want:   map[string]interface{}{"k": "v"},
		},
		{
			name:   "empty path leaves target",
			target: map[string]interface{}{"k": "v"},
			path:   "",
			value:  "x",
			want:   map[string]interface{}{"k": "v"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SetPath(tt.target, tt.path, tt.value))
		})
	}
}

func TestSetPath_ReadBack(t *testing.T) {
	out := SetPath(map[string]interface{}{}, "orders[1].total", float64(9))

	got, found := GetPath(out, "orders[1].total")
	assert.True(t, found)
	assert.Equal(t, float64(9), got)

	first, found := GetPath(out, "orders[0]")
	assert.True(t, found)
	assert.Nil(t, first)
}
