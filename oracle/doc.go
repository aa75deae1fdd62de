// Package oracle answers "what schema applies at this position of this
// resource" for the schema synthesizer.
//
// Three implementations compose through [Chain] with first-hit semantics:
// [Upstream] serves the published Kubernetes API bundle from an on-disk
// cache (optionally fetching over the network), [CRDCatalog] serves a local
// catalog of custom resource schemas, and [Heuristic] is a hard-coded table
// of widely-used field shapes used as a last resort.
//
// Path descent follows properties, falls into additionalProperties for
// declared-but-unnamed keys, tries every allOf/anyOf/oneOf alternative, and
// resolves "[*]" segments through items. References are dereferenced
// recursively with a visited set, so cyclic definition graphs terminate.
package oracle
