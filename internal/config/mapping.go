package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MappingEntry maps one target path to a source expression. Source is a
// path string, a string containing template markers, or a literal value.
type MappingEntry struct {
	Target string
	Source interface{}
}

// MappingConfig is an ordered target-path to source-expression mapping.
// Document order is preserved because later entries may overwrite parts of
// structures built by earlier ones.
type MappingConfig []MappingEntry

// Get returns the source expression for target.
func (m MappingConfig) Get(target string) (interface{}, bool) {
	for _, e := range m {
		if e.Target == target {
			return e.Source, true
		}
	}
	return nil, false
}

// UnmarshalJSON implements json.Unmarshaler. The mapping may be a JSON
// object or a string holding one.
func (m *MappingConfig) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		entries, err := decodeOrderedObject([]byte(s))
		if err != nil {
			*m = nil
			return nil
		}
		*m = entries
		return nil
	}
	entries, err := decodeOrderedObject(b)
	if err != nil {
		return err
	}
	*m = entries
	return nil
}

// MarshalJSON implements json.Marshaler, writing entries in order.
func (m MappingConfig) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Target)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Source)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *MappingConfig) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" || strings.TrimSpace(node.Value) == "" {
			*m = nil
			return nil
		}
		entries, err := decodeOrderedObject([]byte(node.Value))
		if err != nil {
			*m = nil
			return nil
		}
		*m = entries
		return nil
	case yaml.MappingNode:
		entries := make(MappingConfig, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var source interface{}
			if err := node.Content[i+1].Decode(&source); err != nil {
				return err
			}
			entries = append(entries, MappingEntry{
				Target: node.Content[i].Value,
				Source: NormalizeYAMLValue(source),
			})
		}
		*m = entries
		return nil
	default:
		return fmt.Errorf("line %d: mapping_config must be a mapping", node.Line)
	}
}

// decodeOrderedObject reads a JSON object as an ordered entry list.
func decodeOrderedObject(b []byte) (MappingConfig, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("mapping must be a JSON object")
	}

	var entries MappingConfig
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected mapping key %v", keyTok)
		}
		var source interface{}
		if err := dec.Decode(&source); err != nil {
			return nil, err
		}
		entries = append(entries, MappingEntry{Target: key, Source: source})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}
