// Package symbolic walks fused Helm+YAML trees and records value uses:
// observations that some override-document path is read at some YAML
// location, under some guard context, inside some resource kind.
//
// The [Interpreter] tracks three pieces of state during a walk: a stack of
// [Guard]s mirroring the enclosing control flow, the current [YamlPath],
// and the current [ResourceRef] picked up from apiVersion/kind pairs.
// Named templates are inlined through a [fused.DefineIndex] up to a fixed
// depth; dynamic include targets degrade to recording the raw expression.
//
// The output list is sorted by (source expression, path, kind, resource,
// guards) and globally deduplicated, so equivalent tree shapes produce
// byte-identical downstream schemas.
package symbolic
