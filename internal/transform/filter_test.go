package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avaxform/internal/config"
)

func newTestFilterStage() *FilterStage {
	return NewFilterStage(MustNewEvaluator(), NewEngine(nil))
}

func people() []interface{} {
	return []interface{}{
		map[string]interface{}{"name": "a", "age": float64(30), "status": "active"},
		map[string]interface{}{"name": "b", "age": float64(12), "status": "active"},
		map[string]interface{}{"name": "c", "age": float64(45), "status": "inactive"},
	}
}

func TestFilterStage_Apply(t *testing.T) {
	stage := newTestFilterStage()

	tests := []struct {
		name    string
		filters []config.FilterSpec
		want    []string
	}{
		{
			name:    "no filters",
			filters: nil,
			want:    []string{"a", "b", "c"},
		},
		{
			name:    "single expression",
			filters: []config.FilterSpec{{Expression: "record.age >= 18"}},
			want:    []string{"a", "c"},
		},
		{
			name: "all filters must pass",
			filters: []config.FilterSpec{
				{Mode: "expression", Expression: "record.age >= 18"},
				{Mode: "script", Expression: "row.status == 'active'"},
			},
			want: []string{"a"},
		},
		{
			name:    "template mode",
			filters: []config.FilterSpec{{Mode: "template", Expression: `{{eq record.status "inactive"}}`}},
			want:    []string{"c"},
		},
		{
			name:    "handlebars block",
			filters: []config.FilterSpec{{Mode: "handlebars", Expression: `{{#if (gt record.age 40)}}true{{/if}}`}},
			want:    []string{"c"},
		},
		{
			name:    "evaluation error excludes record",
			filters: []config.FilterSpec{{Expression: "record.nope > 1"}},
			want:    []string{},
		},
		{
			name:    "empty expression passes",
			filters: []config.FilterSpec{{Mode: "expression", Expression: "  "}},
			want:    []string{"a", "b", "c"},
		},
		{
			name:    "unknown mode passes",
			filters: []config.FilterSpec{{Mode: "sql", Expression: "age > 100"}},
			want:    []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := stage.Apply(context.Background(), people(), tt.filters, nil)
			require.NoError(t, err)

			list, ok := out.([]interface{})
			require.True(t, ok)
			names := make([]string, 0, len(list))
			for _, r := range list {
				names = append(names, r.(map[string]interface{})["name"].(string))
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestFilterStage_SingleRecord(t *testing.T) {
	stage := newTestFilterStage()
	record := map[string]interface{}{"age": float64(20)}

	out, err := stage.Apply(context.Background(), record,
		[]config.FilterSpec{{Expression: "record.age > 18"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, record, out)

	out, err = stage.Apply(context.Background(), record,
		[]config.FilterSpec{{Expression: "record.age > 21"}}, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestFilterStage_Root(t *testing.T) {
	stage := newTestFilterStage()
	root := map[string]interface{}{"threshold": float64(40), "data": people()}

	out, err := stage.Apply(context.Background(), root["data"],
		[]config.FilterSpec{{Expression: "record.age > root.threshold"}}, root)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestFilterStage_StopOnFail(t *testing.T) {
	stage := newTestFilterStage()

	_, err := stage.Apply(context.Background(), people(), []config.FilterSpec{
		{Label: "adults only", Expression: "record.age >= 18", StopOnFail: true},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPipelineAbort))

	var abort *FilterAbortError
	require.True(t, errors.As(err, &abort))
	assert.Equal(t, "adults only", abort.Label)
	assert.Equal(t, 1, abort.RecordIndex)
	assert.Equal(t, `filter "adults only" blocked the record`, err.Error())
}

func TestFilterStage_StopOnFailShortCircuit(t *testing.T) {
	stage := newTestFilterStage()
	data := []interface{}{map[string]interface{}{"ok": false}}

	out, err := stage.Apply(context.Background(), data, []config.FilterSpec{
		{Expression: "record.ok"},
		{Expression: "false", StopOnFail: true},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, out)
}

func TestFilterAbortError_UnnamedLabel(t *testing.T) {
	err := &FilterAbortError{}
	assert.Equal(t, `filter "unnamed" blocked the record`, err.Error())
}
