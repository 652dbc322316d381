// Package schema turns field descriptions published by an external schema
// registry into validation rules.
//
// Registry documents are loosely structured. A Definition carries a coarse
// category (code), a free-text description (property) and a regexp member
// that is either a delimited regular expression or the name of a
// registry-side validator. Compile runs an ordered chain of pure
// strategies over a Definition; the first strategy that recognises it
// produces the rule.
//
// Documents are fetched through a single-flight cache keyed by URI, and the
// Resolver overlays compiled rules with the values users set explicitly.
package schema
