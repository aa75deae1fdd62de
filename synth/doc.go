// Package synth folds value uses, the chart's defaults document, and the
// resource-shape oracle into a single JSON Schema describing the shape of
// the override document.
//
// The defaults document seeds the root: concrete values become typed
// leaves, maps become closed objects, sequences become arrays whose items
// union the present elements. Each value use then contributes a leaf
// schema at its dotted override path, preferring the oracle's answer for
// (resource, path), then a name heuristic. Equality guards narrow closed
// literal sets to enums. Conflicting contributions combine through the
// schema merge kernel ([Merge]); a guarded contribution never overrides an
// unguarded one.
//
// All object keys serialize in a canonical order ([MarshalCanonical]), so
// identical inputs yield byte-identical output.
package synth
