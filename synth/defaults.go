package synth

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/google/jsonschema-go/jsonschema"
)

// schemaFromDefaults initializes a schema from the chart's defaults
// document. Every concrete value becomes a typed leaf, every map an object
// with closed properties, every sequence an array whose items are the union
// of the present elements. Nulls and absent values stay open. Plain
// comments attached to keys become property descriptions.
func schemaFromDefaults(defaults []byte) (*jsonschema.Schema, error) {
	if len(defaults) == 0 || strings.TrimSpace(string(defaults)) == "" {
		return emptyObjectSchema(), nil
	}

	file, err := parser.ParseBytes(defaults, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefaults, err)
	}

	if len(file.Docs) == 0 || file.Docs[0].Body == nil {
		return emptyObjectSchema(), nil
	}

	body := file.Docs[0].Body
	anchors := buildAnchorMap(body)

	schema := walkDefaults(body, anchors)
	if schema.Type != typeObject {
		return emptyObjectSchema(), nil
	}

	return schema, nil
}

func emptyObjectSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 typeObject,
		AdditionalProperties: falseSchema(),
	}
}

func falseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

func walkDefaults(node ast.Node, anchors map[string]ast.Node) *jsonschema.Schema {
	node = resolveAlias(node, anchors)
	node = unwrapNode(node)

	if node == nil {
		return &jsonschema.Schema{}
	}

	switch n := node.(type) {
	case *ast.MappingNode:
		return walkDefaultsMapping(n.Values, anchors)
	case *ast.MappingValueNode:
		return walkDefaultsMapping([]*ast.MappingValueNode{n}, anchors)
	case *ast.SequenceNode:
		return walkDefaultsSequence(n, anchors)
	default:
		return scalarSchema(node)
	}
}

func walkDefaultsMapping(values []*ast.MappingValueNode, anchors map[string]ast.Node) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:                 typeObject,
		Properties:           make(map[string]*jsonschema.Schema),
		AdditionalProperties: falseSchema(),
	}

	for _, mvn := range values {
		if _, ok := mvn.Key.(*ast.MergeKeyNode); ok {
			mergeDefaultsKey(mvn, anchors, schema)

			continue
		}

		key := mvn.Key.String()

		child := walkDefaults(mvn.Value, anchors)
		if child.Description == "" {
			child.Description = extractComment(mvn)
		}

		schema.Properties[key] = child
	}

	if len(schema.Properties) == 0 {
		schema.Properties = nil
	}

	return schema
}

// mergeDefaultsKey folds a YAML merge key (<<) into the enclosing object,
// existing keys winning over merged ones.
func mergeDefaultsKey(mvn *ast.MappingValueNode, anchors map[string]ast.Node, schema *jsonschema.Schema) {
	value := unwrapNode(resolveAlias(mvn.Value, anchors))

	var sources []ast.Node

	switch v := value.(type) {
	case *ast.MappingNode, *ast.MappingValueNode:
		sources = append(sources, v)
	case *ast.SequenceNode:
		for _, item := range v.Values {
			sources = append(sources, unwrapNode(resolveAlias(item, anchors)))
		}
	}

	for _, src := range sources {
		merged := walkDefaults(src, anchors)

		for key, child := range merged.Properties {
			if _, exists := schema.Properties[key]; !exists {
				schema.Properties[key] = child
			}
		}
	}
}

func walkDefaultsSequence(seq *ast.SequenceNode, anchors map[string]ast.Node) *jsonschema.Schema {
	schema := &jsonschema.Schema{Type: typeArray}

	if len(seq.Values) == 0 {
		return schema
	}

	items := make([]*jsonschema.Schema, 0, len(seq.Values))
	for _, v := range seq.Values {
		items = append(items, walkDefaults(v, anchors))
	}

	schema.Items = MergeAll(items...)

	return schema
}

func scalarSchema(node ast.Node) *jsonschema.Schema {
	if t := inferType(node); t != "" {
		return &jsonschema.Schema{Type: t}
	}

	return &jsonschema.Schema{}
}

// JSON Schema type names.
const (
	typeBoolean = "boolean"
	typeInteger = "integer"
	typeNumber  = "number"
	typeString  = "string"
	typeArray   = "array"
	typeObject  = "object"
)

// inferType maps a YAML AST node to its JSON Schema type. Null and empty
// values return "" and stay maximally permissive.
func inferType(node ast.Node) string {
	switch unwrapNode(node).(type) {
	case *ast.BoolNode:
		return typeBoolean
	case *ast.IntegerNode:
		return typeInteger
	case *ast.FloatNode, *ast.InfinityNode, *ast.NanNode:
		return typeNumber
	case *ast.StringNode, *ast.LiteralNode:
		return typeString
	case *ast.SequenceNode:
		return typeArray
	case *ast.MappingNode, *ast.MappingValueNode:
		return typeObject
	}

	return ""
}

// unwrapNode resolves tag and anchor wrappers to the underlying value node.
func unwrapNode(node ast.Node) ast.Node {
	for {
		switch n := node.(type) {
		case *ast.TagNode:
			node = n.Value
		case *ast.AnchorNode:
			node = n.Value
		default:
			return node
		}
	}
}

func buildAnchorMap(node ast.Node) map[string]ast.Node {
	anchors := make(map[string]ast.Node)

	ast.Walk(&anchorVisitor{anchors: anchors}, node)

	return anchors
}

type anchorVisitor struct {
	anchors map[string]ast.Node
}

// Visit implements the [ast.Visitor] interface.
func (v *anchorVisitor) Visit(node ast.Node) ast.Visitor {
	if anchor, ok := node.(*ast.AnchorNode); ok {
		v.anchors[anchor.Name.String()] = anchor.Value
	}

	return v
}

func resolveAlias(node ast.Node, anchors map[string]ast.Node) ast.Node {
	alias, ok := node.(*ast.AliasNode)
	if !ok {
		return node
	}

	if resolved, found := anchors[alias.Value.String()]; found {
		return resolved
	}

	return nil
}

// extractComment pulls a plain-text description from the comments attached
// to a mapping entry.
func extractComment(mvn *ast.MappingValueNode) string {
	if desc := cleanComment(mvn.GetComment()); desc != "" {
		return desc
	}

	if mvn.Value != nil {
		if desc := cleanComment(mvn.Value.GetComment()); desc != "" {
			return desc
		}
	}

	if keyNode, ok := mvn.Key.(ast.Node); ok {
		return cleanComment(keyNode.GetComment())
	}

	return ""
}

// cleanComment strips comment markers, keeps only the lines after the last
// blank line, and joins the remainder with spaces.
func cleanComment(comment *ast.CommentGroupNode) string {
	if comment == nil {
		return ""
	}

	lines := strings.Split(comment.String(), "\n")

	lastBlank := -1

	for i, line := range lines {
		if strings.TrimSpace(stripCommentPrefix(line)) == "" {
			lastBlank = i
		}
	}

	start := 0
	if lastBlank >= 0 && lastBlank < len(lines)-1 {
		start = lastBlank + 1
	}

	var parts []string

	for _, line := range lines[start:] {
		cleaned := strings.TrimSpace(stripCommentPrefix(line))
		if cleaned == "" || strings.HasPrefix(cleaned, "-- ") || cleaned == "--" {
			continue
		}

		parts = append(parts, cleaned)
	}

	return strings.Join(parts, " ")
}

func stripCommentPrefix(line string) string {
	line = strings.TrimSpace(line)
	for strings.HasPrefix(line, "#") {
		line = strings.TrimPrefix(line, "#")
	}

	return strings.TrimPrefix(line, " ")
}
