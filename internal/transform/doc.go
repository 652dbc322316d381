// Package transform implements the record stages of a transformation rule:
// path addressing, filtering, field mapping and whole-document templating.
//
// Stages operate on generic values (map[string]interface{},
// []interface{}, string, float64, bool and nil) and never assume the
// payload format they were decoded from.
package transform
