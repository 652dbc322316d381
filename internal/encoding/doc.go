// Package encoding converts payload text in the supported formats (json,
// csv, xml) to and from the generic value tree every pipeline stage works
// on: map[string]interface{}, []interface{}, string, float64, bool and nil.
//
// XML documents follow the conventions of the common explicitArray=false
// mapping: the root element becomes a single-key map, repeated sibling tags
// become lists, attributes are collected under "$" and mixed text under "_".
// Because the shape of a tag depends on how many times it occurred, rules
// that read XML should address list members positionally (item[0]).
package encoding
