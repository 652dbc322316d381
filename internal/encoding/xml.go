package encoding

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Keys used for attributes and text of elements that also carry children
// or attributes.
const (
	XMLAttrKey = "$"
	XMLTextKey = "_"
)

// Synthetic element names used when serializing.
const (
	xmlDefaultRoot = "root"
	xmlListWrapper = "items"
	xmlListItem    = "item"
)

// XMLElement represents a generic XML element for dynamic XML handling.
type XMLElement struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Content  string       `xml:",chardata"`
	Children []XMLElement `xml:",any"`
}

type xmlCodec struct{}

// NewXMLCodec creates the xml codec.
func NewXMLCodec() Codec {
	return xmlCodec{}
}

func (xmlCodec) Format() string      { return "xml" }
func (xmlCodec) ContentType() string { return "application/xml" }

// Parse returns {rootTag: content}. Content after the root element other
// than whitespace, comments and processing instructions is an error.
func (c xmlCodec) Parse(input interface{}) (interface{}, error) {
	text, err := inputText(c.Format(), input)
	if err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(strings.NewReader(text))
	var root XMLElement
	if err := dec.Decode(&root); err != nil {
		return nil, &ParseError{Format: c.Format(), Err: err}
	}
	if err := expectXMLEnd(dec); err != nil {
		return nil, &ParseError{Format: c.Format(), Err: err}
	}
	return map[string]interface{}{
		root.XMLName.Local: xmlElementValue(&root),
	}, nil
}

func expectXMLEnd(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("unexpected element <%s> after root element", t.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("unexpected text %q after root element", strings.TrimSpace(string(t)))
			}
		}
	}
}

// xmlElementValue converts an element to a generic value. An element with
// neither attributes nor children is its text. Whitespace-only text next to
// children or attributes is dropped.
func xmlElementValue(elem *XMLElement) interface{} {
	obj := make(map[string]interface{})

	if len(elem.Attrs) > 0 {
		attrs := make(map[string]interface{}, len(elem.Attrs))
		for _, attr := range elem.Attrs {
			attrs[attr.Name.Local] = attr.Value
		}
		obj[XMLAttrKey] = attrs
	}

	for i := range elem.Children {
		child := &elem.Children[i]
		name := child.XMLName.Local
		value := xmlElementValue(child)

		existing, ok := obj[name]
		if !ok {
			obj[name] = value
			continue
		}
		if list, isList := existing.([]interface{}); isList {
			obj[name] = append(list, value)
		} else {
			obj[name] = []interface{}{existing, value}
		}
	}

	if len(obj) == 0 {
		return elem.Content
	}
	if strings.TrimSpace(elem.Content) != "" {
		obj[XMLTextKey] = elem.Content
	}
	return obj
}

// Serialize writes an indented document without declaration. A list is
// wrapped as <items><item>...</item></items>. A map with a single key names
// the root element, anything else is placed under <root>.
func (xmlCodec) Serialize(v interface{}) (string, error) {
	if list, ok := v.([]interface{}); ok {
		v = map[string]interface{}{
			xmlListWrapper: map[string]interface{}{xmlListItem: list},
		}
	}

	rootName := xmlDefaultRoot
	content := v
	if m, ok := v.(map[string]interface{}); ok && len(m) == 1 {
		for k, val := range m {
			rootName, content = k, val
		}
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := writeXMLElement(enc, rootName, content); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeXMLElement(enc *xml.Encoder, name string, v interface{}) error {
	if name == "" {
		return fmt.Errorf("empty element name")
	}

	if list, ok := v.([]interface{}); ok {
		for _, item := range list {
			if err := writeXMLElement(enc, name, item); err != nil {
				return err
			}
		}
		return nil
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}
	m, isMap := v.(map[string]interface{})
	if isMap {
		if attrs, ok := m[XMLAttrKey].(map[string]interface{}); ok {
			for _, k := range sortedKeys(attrs) {
				start.Attr = append(start.Attr, xml.Attr{
					Name:  xml.Name{Local: k},
					Value: formatScalar(attrs[k]),
				})
			}
		}
	}

	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	if isMap {
		if text, ok := m[XMLTextKey]; ok {
			if err := enc.EncodeToken(xml.CharData(formatScalar(text))); err != nil {
				return err
			}
		}
		for _, k := range sortedKeys(m) {
			if k == XMLAttrKey || k == XMLTextKey {
				continue
			}
			if err := writeXMLElement(enc, k, m[k]); err != nil {
				return err
			}
		}
	} else if v != nil {
		if err := enc.EncodeToken(xml.CharData(formatScalar(v))); err != nil {
			return err
		}
	}

	return enc.EncodeToken(start.End())
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
