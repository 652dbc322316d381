package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vyrodovalexey/avaxform/internal/encoding"
	"github.com/vyrodovalexey/avaxform/internal/util"
)

// fieldMembers lists the members that hold per-field definitions of a
// multi-field document, in lookup order.
var fieldMembers = []string{"properties", "fields", "columns"}

// fieldNameKeys lists the members naming a field inside a list entry.
var fieldNameKeys = []string{"name", "field", "id", "key"}

// Definition describes one field.
type Definition struct {
	Title    string `json:"title,omitempty"`
	Code     string `json:"code,omitempty"`
	Property string `json:"property,omitempty"`
	Regexp   string `json:"regexp,omitempty"`
	Name     string `json:"name,omitempty"`
}

// IsZero reports whether the definition carries no compilable content.
func (d Definition) IsZero() bool {
	return strings.TrimSpace(d.Code) == "" &&
		strings.TrimSpace(d.Property) == "" &&
		strings.TrimSpace(d.Regexp) == ""
}

// Document is a fetched schema document. Single-field documents only use
// the embedded Definition; multi-field documents also list Fields in
// document order.
type Document struct {
	Definition
	Fields []Definition `json:"fields,omitempty"`
}

// IsMultiField reports whether the document describes several fields.
func (d *Document) IsMultiField() bool {
	return d != nil && len(d.Fields) > 0
}

// DefinitionFor returns the definition of field. Nested paths fall back to
// their last segment, so "person.id" matches a field named "id".
func (d *Document) DefinitionFor(field string) (Definition, bool) {
	if d == nil || field == "" {
		return Definition{}, false
	}
	for _, candidate := range []string{field, lastSegment(field)} {
		for _, def := range d.Fields {
			if def.Name == candidate {
				return def, true
			}
		}
	}
	return Definition{}, false
}

// ParseDocument decodes a registry response.
func ParseDocument(data []byte) (*Document, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("%w: schema document must be a JSON object: %v", util.ErrInvalidInput, err)
	}

	doc := &Document{Definition: definitionFromMembers(members)}
	for _, member := range fieldMembers {
		raw, ok := members[member]
		if !ok || isNull(raw) {
			continue
		}
		fields, err := parseFields(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: schema member %q: %v", util.ErrInvalidInput, member, err)
		}
		doc.Fields = fields
		break
	}
	return doc, nil
}

func parseFields(raw json.RawMessage) ([]Definition, error) {
	switch firstByte(raw) {
	case '{':
		keys, err := objectKeys(raw)
		if err != nil {
			return nil, err
		}
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, err
		}
		fields := make([]Definition, 0, len(keys))
		for _, key := range keys {
			def := definitionFromRaw(entries[key])
			def.Name = key
			fields = append(fields, def)
		}
		return fields, nil

	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, err
		}
		fields := make([]Definition, 0, len(entries))
		for _, entry := range entries {
			var members map[string]json.RawMessage
			if err := json.Unmarshal(entry, &members); err != nil {
				continue
			}
			def := definitionFromMembers(members)
			def.Name = firstText(members, fieldNameKeys...)
			if def.Name == "" {
				continue
			}
			fields = append(fields, def)
		}
		return fields, nil

	default:
		return nil, nil
	}
}

func definitionFromRaw(raw json.RawMessage) Definition {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		// A bare value is taken as the coarse category.
		return Definition{Code: rawText(raw)}
	}
	return definitionFromMembers(members)
}

func definitionFromMembers(members map[string]json.RawMessage) Definition {
	def := Definition{
		Title:    firstText(members, "title", "en_title"),
		Code:     firstText(members, "code", "type", "dataType"),
		Property: firstText(members, "property"),
		Regexp:   firstText(members, "regexp"),
		Name:     firstText(members, "name"),
	}
	// A plain pattern member is a regular expression, never a validator name.
	if def.Regexp == "" {
		if pattern := firstText(members, "pattern"); pattern != "" {
			def.Regexp = "/" + pattern + "/"
		}
	}
	return def
}

func firstText(members map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		if raw, ok := members[key]; ok {
			if text := rawText(raw); text != "" {
				return text
			}
		}
	}
	return ""
}

// rawText renders a scalar member as text. Containers yield "".
func rawText(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return encoding.FormatNumber(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// objectKeys returns the member names of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var keys []string
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

// FieldNames returns the names of a multi-field document in document
// order.
func (d *Document) FieldNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.Fields))
	for _, def := range d.Fields {
		names = append(names, def.Name)
	}
	return names
}
