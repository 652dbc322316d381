// Package pipeline runs a transformation rule over a payload.
//
// A run parses the source, unwraps a conventional envelope, then applies
// the filter, mapping and template stages in that order. Validation rules
// are collected from the rule and its pipeline validator steps, enriched
// from schema documents where they reference one, and applied under the
// rule's failure policy. The result is serialized into the target format.
package pipeline
