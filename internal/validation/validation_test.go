package validation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avaxform/internal/config"
)

func sampleRecords() []interface{} {
	return []interface{}{
		map[string]interface{}{"id": "1", "email": "a@example.com", "age": float64(30)},
		map[string]interface{}{"id": "", "email": "broken", "age": float64(30)},
		map[string]interface{}{"id": "3", "email": "c@example.com", "age": float64(200)},
		map[string]interface{}{"id": "4", "email": "d@example.com", "age": float64(40)},
	}
}

func sampleRules() []config.ValidationRule {
	return []config.ValidationRule{
		{Field: "id", Type: "required"},
		{Field: "email", Type: "email"},
		{Field: "age", Type: "number", Max: ptr(150)},
	}
}

func TestEngine_Validate_Policies(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name        string
		policy      config.OnFailPolicy
		wantValid   bool
		wantKept    []string
		wantWarned  []string
		wantInvalid int
	}{
		{
			name:        "reject keeps everything and is invalid",
			policy:      config.OnFailReject,
			wantValid:   false,
			wantKept:    []string{"1", "", "3", "4"},
			wantInvalid: 0,
		},
		{
			name:        "empty policy means reject",
			policy:      "",
			wantValid:   false,
			wantKept:    []string{"1", "", "3", "4"},
			wantInvalid: 0,
		},
		{
			name:        "filter drops records with errors",
			policy:      config.OnFailFilter,
			wantValid:   true,
			wantKept:    []string{"1", "4"},
			wantInvalid: 2,
		},
		{
			name:        "warn keeps and annotates",
			policy:      config.OnFailWarn,
			wantValid:   true,
			wantKept:    []string{"1", "", "3", "4"},
			wantWarned:  []string{"", "3"},
			wantInvalid: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := engine.Validate(context.Background(), sampleRecords(), sampleRules(), Options{OnFail: tt.policy})

			assert.Equal(t, tt.wantValid, report.Valid)
			assert.Equal(t, 4, report.TotalRecords)
			assert.Equal(t, len(tt.wantKept), report.ValidRecords)
			assert.Equal(t, tt.wantInvalid, report.InvalidRecords)
			require.Len(t, report.Errors, 3)

			kept, ok := report.Data.([]interface{})
			require.True(t, ok)
			assert.Equal(t, report.TotalRecords, len(kept)+report.InvalidRecords)

			var ids, warned []string
			for _, r := range kept {
				m := r.(map[string]interface{})
				ids = append(ids, m["id"].(string))
				if w, ok := m[WarningsKey]; ok {
					assert.NotEmpty(t, w)
					warned = append(warned, m["id"].(string))
				}
			}
			assert.Equal(t, tt.wantKept, ids)
			assert.Equal(t, tt.wantWarned, warned)
		})
	}
}

func TestEngine_Validate_ErrorDetails(t *testing.T) {
	report := NewEngine().Validate(context.Background(), sampleRecords(), sampleRules(), Options{})

	assert.Equal(t, []FieldError{
		{RecordIndex: 1, Field: "id", Message: "field id is required", Kind: "required"},
		{RecordIndex: 1, Field: "email", Message: "field email must be a valid email address", Kind: "email"},
		{RecordIndex: 2, Field: "age", Message: "field age must not be greater than 150", Kind: "number"},
	}, report.Errors)
}

func TestEngine_Validate_WarnDoesNotMutateInput(t *testing.T) {
	records := sampleRecords()
	NewEngine().Validate(context.Background(), records, sampleRules(), Options{OnFail: config.OnFailWarn})

	for _, r := range records {
		_, annotated := r.(map[string]interface{})[WarningsKey]
		assert.False(t, annotated)
	}
}

func TestEngine_Validate_SingleRecord(t *testing.T) {
	engine := NewEngine()
	rules := []config.ValidationRule{{Field: "id", Type: "required"}}

	report := engine.Validate(context.Background(), map[string]interface{}{"id": "x"}, rules, Options{})
	assert.True(t, report.Valid)
	assert.Equal(t, map[string]interface{}{"id": "x"}, report.Data)

	report = engine.Validate(context.Background(), map[string]interface{}{}, rules, Options{OnFail: config.OnFailFilter})
	assert.True(t, report.Valid)
	assert.Nil(t, report.Data)
	assert.Equal(t, 1, report.InvalidRecords)
}

func TestEngine_Validate_NoRules(t *testing.T) {
	data := []interface{}{"a"}
	report := NewEngine().Validate(context.Background(), data, nil, Options{})

	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Equal(t, data, report.Data)
}

func TestEngine_Validate_WarnOnNonMapRecords(t *testing.T) {
	rules := []config.ValidationRule{{Field: "x", Type: "required"}}
	data := []interface{}{"scalar", []interface{}{"a", "b"}}
	report := NewEngine().Validate(context.Background(), data, rules, Options{OnFail: config.OnFailWarn})

	require.Len(t, report.Errors, 2)
	records, ok := report.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, records, 2)

	for i, want := range data {
		m, ok := records[i].(map[string]interface{})
		require.True(t, ok, "record %d should be wrapped", i)
		assert.Equal(t, want, m[ValueKey])
		require.Contains(t, m, WarningsKey)
		warnings := m[WarningsKey].([]interface{})
		require.Len(t, warnings, 1)
		assert.Equal(t, float64(i), warnings[0].(map[string]interface{})["record_index"])
	}
	assert.Equal(t, "scalar", data[0])
}

func TestReport_JSON(t *testing.T) {
	report := &Report{
		Valid:          false,
		Errors:         []FieldError{{RecordIndex: 0, Field: "f", Message: "m", Kind: "required"}},
		TotalRecords:   1,
		ValidRecords:   1,
		InvalidRecords: 0,
		Data:           []interface{}{"hidden"},
	}

	b, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"valid": false,
		"errors": [{"record_index": 0, "field": "f", "message": "m", "kind": "required"}],
		"total_records": 1,
		"valid_records": 1,
		"invalid_records": 0
	}`, string(b))
}

func TestValidationMetrics(t *testing.T) {
	m := GetValidationMetrics()
	assert.Same(t, m, GetValidationMetrics())
	m.Init()
	assert.NotPanics(t, func() {
		m.MustRegister(prometheus.NewRegistry())
	})
}
