// Package fused parses files of interleaved YAML and Go-template directives
// into a single tree in which both structures are first-class.
//
// A template action whose opening delimiter starts a line is a standalone
// action: control-flow actions (if, range, with, define, block, else, end)
// drive a stack that nests subsequent content, comments and expressions
// become leaf nodes. Everything else accumulates into pending YAML
// fragments that are deindented and handed to a conventional YAML parser;
// actions embedded inside fragment scalars surface as [TemplateExpr] nodes
// in place of the scalar.
//
// The package ships two parser backends, [ScanParser] and [TokenParser],
// which must produce equal trees on every input. [Sexpr] renders a tree
// canonically so equality can be asserted byte-for-byte.
//
// [DefineIndex] accumulates named template definitions across files for the
// symbolic interpreter to inline.
package fused
