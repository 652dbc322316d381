package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Payload formats understood by the codecs.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXML  = "xml"
)

// OnFailPolicy selects what validation does with records that have errors.
type OnFailPolicy string

// Validation failure policies.
const (
	OnFailReject OnFailPolicy = "reject"
	OnFailFilter OnFailPolicy = "filter"
	OnFailWarn   OnFailPolicy = "warn"
)

// ParseOnFailPolicy normalizes a policy name. Unknown or empty names
// yield reject.
func ParseOnFailPolicy(s string) OnFailPolicy {
	switch OnFailPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case OnFailFilter:
		return OnFailFilter
	case OnFailWarn:
		return OnFailWarn
	default:
		return OnFailReject
	}
}

// Filter dialects.
const (
	FilterModeExpression = "expression"
	FilterModeScript     = "script"
	FilterModeJS         = "js"
	FilterModeTemplate   = "template"
	FilterModeHandlebars = "handlebars"
)

// TransformationRule describes how one payload is turned into another.
// A rule is read-only once loaded.
type TransformationRule struct {
	Name                 string          `json:"rule_name" yaml:"rule_name"`
	Description          string          `json:"description,omitempty" yaml:"description,omitempty"`
	SourceFormat         string          `json:"source_format" yaml:"source_format"`
	TargetFormat         string          `json:"target_format" yaml:"target_format"`
	FilterConfig         FilterList      `json:"filter_config,omitempty" yaml:"filter_config,omitempty"`
	MappingConfig        MappingConfig   `json:"mapping_config,omitempty" yaml:"mapping_config,omitempty"`
	TemplateConfig       TemplateConfig  `json:"template_config,omitempty" yaml:"template_config,omitempty"`
	ValidationConfig     ValidationRules `json:"validation_config,omitempty" yaml:"validation_config,omitempty"`
	ValidationOnFail     string          `json:"validation_on_fail,omitempty" yaml:"validation_on_fail,omitempty"`
	ValidationStrictMode Flag            `json:"validation_strict_mode,omitempty" yaml:"validation_strict_mode,omitempty"`
	PipelineConfig       PipelineSteps   `json:"pipeline_config,omitempty" yaml:"pipeline_config,omitempty"`
	SampleInput          RawText         `json:"sample_input,omitempty" yaml:"sample_input,omitempty"`
	TestSourceURL        string          `json:"test_source_url,omitempty" yaml:"test_source_url,omitempty"`
}

// SourceFormatOrDefault returns the lowercased source format, json if unset.
func (r *TransformationRule) SourceFormatOrDefault() string {
	return formatOrDefault(r.SourceFormat)
}

// TargetFormatOrDefault returns the lowercased target format, json if unset.
func (r *TransformationRule) TargetFormatOrDefault() string {
	return formatOrDefault(r.TargetFormat)
}

func formatOrDefault(f string) string {
	f = strings.ToLower(strings.TrimSpace(f))
	if f == "" {
		return FormatJSON
	}
	return f
}

// FilterSpec is a single record predicate.
type FilterSpec struct {
	Label      string `json:"label,omitempty" yaml:"label,omitempty"`
	Mode       string `json:"mode,omitempty" yaml:"mode,omitempty"`
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
	StopOnFail Flag   `json:"stop_on_fail,omitempty" yaml:"stop_on_fail,omitempty"`
}

// ValidationRule checks one field of every record.
type ValidationRule struct {
	Field      string        `json:"field,omitempty" yaml:"field,omitempty"`
	Type       string        `json:"type,omitempty" yaml:"type,omitempty"`
	Min        *float64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max        *float64      `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern    string        `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Flags      string        `json:"flags,omitempty" yaml:"flags,omitempty"`
	Values     []interface{} `json:"values,omitempty" yaml:"values,omitempty"`
	Expression string        `json:"expression,omitempty" yaml:"expression,omitempty"`
	Message    string        `json:"message,omitempty" yaml:"message,omitempty"`
	SchemaURI  string        `json:"schemaUri,omitempty" yaml:"schemaUri,omitempty"`

	// Set by the schema compiler when a pattern was derived from a named
	// validator's free-text description.
	ValidatorName    string `json:"validatorName,omitempty" yaml:"validatorName,omitempty"`
	PropertyOriginal string `json:"propertyOriginal,omitempty" yaml:"propertyOriginal,omitempty"`
}

// PipelineStep is one node of a visual pipeline definition. Only validator
// steps influence execution.
type PipelineStep struct {
	Order  int                `json:"order,omitempty" yaml:"order,omitempty"`
	Type   string             `json:"type" yaml:"type"`
	Label  string             `json:"label,omitempty" yaml:"label,omitempty"`
	Config PipelineStepConfig `json:"config,omitempty" yaml:"config,omitempty"`
}

// IsValidator reports whether the step contributes validation rules.
func (s PipelineStep) IsValidator() bool {
	return strings.EqualFold(strings.TrimSpace(s.Type), "validator")
}

// PipelineStepConfig holds validator settings of a pipeline step.
type PipelineStepConfig struct {
	ValidationRules  ValidationRules `json:"validationRules,omitempty" yaml:"validationRules,omitempty"`
	OnValidationFail string          `json:"onValidationFail,omitempty" yaml:"onValidationFail,omitempty"`
	StrictMode       Flag            `json:"strictMode,omitempty" yaml:"strictMode,omitempty"`
}

// FilterList is a list of filters that may also be given as JSON text.
type FilterList []FilterSpec

// UnmarshalJSON implements json.Unmarshaler.
func (l *FilterList) UnmarshalJSON(b []byte) error {
	var v []FilterSpec
	if err := decodeLenientJSON(b, &v); err != nil {
		return err
	}
	*l = v
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *FilterList) UnmarshalYAML(node *yaml.Node) error {
	var v []FilterSpec
	if err := decodeLenientYAML(node, &v); err != nil {
		return err
	}
	*l = v
	return nil
}

// ValidationRules is a list of rules that may also be given as JSON text.
type ValidationRules []ValidationRule

// UnmarshalJSON implements json.Unmarshaler.
func (l *ValidationRules) UnmarshalJSON(b []byte) error {
	var v []ValidationRule
	if err := decodeLenientJSON(b, &v); err != nil {
		return err
	}
	*l = v
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *ValidationRules) UnmarshalYAML(node *yaml.Node) error {
	var v []ValidationRule
	if err := decodeLenientYAML(node, &v); err != nil {
		return err
	}
	*l = v
	return nil
}

// PipelineSteps is a list of steps that may also be given as JSON text.
type PipelineSteps []PipelineStep

// UnmarshalJSON implements json.Unmarshaler.
func (l *PipelineSteps) UnmarshalJSON(b []byte) error {
	var v []PipelineStep
	if err := decodeLenientJSON(b, &v); err != nil {
		return err
	}
	*l = v
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *PipelineSteps) UnmarshalYAML(node *yaml.Node) error {
	var v []PipelineStep
	if err := decodeLenientYAML(node, &v); err != nil {
		return err
	}
	*l = v
	return nil
}

// Flag is a boolean that also accepts "true"/"false" strings.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Flag(truthy(v))
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	var v interface{}
	if err := node.Decode(&v); err != nil {
		return err
	}
	*f = Flag(truthy(v))
	return nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	default:
		return false
	}
}

// TemplateConfig is raw template text. An object form {"body": "..."} is
// also accepted.
type TemplateConfig string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TemplateConfig) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
		return nil
	case len(b) > 0 && b[0] == '{':
		var obj struct {
			Body string `json:"body"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*t = TemplateConfig(obj.Body)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = TemplateConfig(s)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *TemplateConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		var obj struct {
			Body string `yaml:"body"`
		}
		if err := node.Decode(&obj); err != nil {
			return err
		}
		*t = TemplateConfig(obj.Body)
		return nil
	}
	*t = TemplateConfig(node.Value)
	return nil
}

// RawText is payload text. Structured JSON or YAML values are stored as
// their JSON encoding.
type RawText string

// UnmarshalJSON implements json.Unmarshaler.
func (r *RawText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RawText(s)
		return nil
	}
	*r = RawText(b)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *RawText) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*r = RawText(node.Value)
		return nil
	}
	var v interface{}
	if err := node.Decode(&v); err != nil {
		return err
	}
	b, err := json.Marshal(NormalizeYAMLValue(v))
	if err != nil {
		return err
	}
	*r = RawText(b)
	return nil
}

// decodeLenientJSON decodes b into v. When b is a JSON string its content is
// decoded instead; blank or malformed embedded text leaves v empty.
func decodeLenientJSON(b []byte, v interface{}) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] != '"' {
		return json.Unmarshal(b, v)
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), v)
	return nil
}

// decodeLenientYAML is the YAML counterpart of decodeLenientJSON.
func decodeLenientYAML(node *yaml.Node, v interface{}) error {
	if node.Kind == yaml.ScalarNode {
		if node.Tag == "!!null" || strings.TrimSpace(node.Value) == "" {
			return nil
		}
		_ = json.Unmarshal([]byte(node.Value), v)
		return nil
	}
	return node.Decode(v)
}

// NormalizeYAMLValue converts YAML-decoded values to the JSON data model:
// integers become float64 and map keys become strings.
func NormalizeYAMLValue(v interface{}) interface{} {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = NormalizeYAMLValue(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = NormalizeYAMLValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = NormalizeYAMLValue(val)
		}
		return out
	default:
		return v
	}
}
