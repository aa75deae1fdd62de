// Package helmschema generates a JSON Schema for a Helm chart's override
// document by static analysis: no renderer is invoked and no cluster is
// contacted.
//
// The pipeline has three stages. The [fused] package parses each template
// into a tree in which YAML structure and template directives are both
// first-class. The [symbolic] package walks that tree, tracking guards, the
// current YAML location, and the enclosing resource kind, and emits a flat
// list of value uses. The [synth] package folds those uses together with
// the chart's defaults document and a resource-shape [oracle] into a single
// draft-07 schema.
//
// [Generate] runs the whole pipeline over a chart directory or archive;
// the pieces compose individually for finer control.
//
// [fused]: go.jacobcolvin.com/helmschema/fused
// [symbolic]: go.jacobcolvin.com/helmschema/symbolic
// [synth]: go.jacobcolvin.com/helmschema/synth
// [oracle]: go.jacobcolvin.com/helmschema/oracle
package helmschema
