package fused

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
)

// Sentinel errors returned by the parser backends.
var (
	// ErrUnbalanced indicates a control-flow action without a matching end.
	// A stray end without an opener is ignored, not reported.
	ErrUnbalanced = errors.New("unbalanced control flow")
	// ErrInvalidYAML indicates that a YAML fragment between template actions
	// could not be parsed.
	ErrInvalidYAML = errors.New("invalid yaml fragment")
)

const inlineMarker = "__helm_inline_"

// maskInlineActions replaces every template action embedded in a pending
// YAML fragment with a unique scalar token so the fragment parses as plain
// YAML. Expression actions map token -> expression text; control-flow and
// comment actions are removed outright.
func maskInlineActions(fragment string) (string, map[string]string) {
	if !strings.Contains(fragment, "{{") {
		return fragment, nil
	}

	var (
		sb     strings.Builder
		tokens map[string]string
		n      int
	)

	rest := fragment

	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			sb.WriteString(rest)

			break
		}

		sb.WriteString(rest[:open])
		rest = rest[open:]

		closeAt := strings.Index(rest, "}}")
		if closeAt < 0 {
			// Unterminated action; keep the raw text and let YAML decide.
			sb.WriteString(rest)

			break
		}

		raw := rest[:closeAt+2]
		rest = rest[closeAt+2:]

		action := ClassifyAction(raw)
		if action.Kind != ActionExpr {
			continue
		}

		if tokens == nil {
			tokens = make(map[string]string)
		}

		token := fmt.Sprintf("%s%d__", inlineMarker, n)
		n++
		tokens[token] = action.Text

		sb.WriteString(token)
	}

	return sb.String(), tokens
}

// parseFragment parses one pending YAML fragment and converts each document
// body into fused nodes. Inline template actions have already been masked;
// scalars carrying mask tokens are rewritten to [*TemplateExpr] nodes.
func parseFragment(fragment string, tokens map[string]string) ([]Node, error) {
	file, err := parser.ParseBytes([]byte(fragment), 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
	}

	var out []Node

	for _, doc := range file.Docs {
		if doc.Body == nil {
			continue
		}

		node := convertYAML(doc.Body, tokens)
		if node != nil {
			out = append(out, node)
		}
	}

	return out, nil
}

// convertYAML converts a goccy AST node into a fused node. Returns nil for
// null values so pairs can carry an absent value.
func convertYAML(node ast.Node, tokens map[string]string) Node {
	node = unwrapYAML(node)
	if node == nil {
		return nil
	}

	switch n := node.(type) {
	case *ast.MappingNode:
		return convertMapping(n.Values, tokens)
	case *ast.MappingValueNode:
		return convertMapping([]*ast.MappingValueNode{n}, tokens)
	case *ast.SequenceNode:
		seq := &Sequence{}

		for _, v := range n.Values {
			item := convertYAML(v, tokens)
			if item == nil {
				item = &Scalar{Text: "null"}
			}

			seq.Items = append(seq.Items, item)
		}

		return seq
	case *ast.NullNode:
		return nil
	default:
		return convertScalar(node, tokens)
	}
}

func convertMapping(values []*ast.MappingValueNode, tokens map[string]string) Node {
	m := &Mapping{}

	for _, mvn := range values {
		key := convertScalar(mvn.Key, tokens)
		value := convertYAML(mvn.Value, tokens)

		m.Items = append(m.Items, &Pair{Key: key, Value: value})
	}

	return m
}

// convertScalar converts a scalar-ish goccy node, resolving mask tokens back
// to template expressions.
func convertScalar(node ast.Node, tokens map[string]string) Node {
	text := scalarText(node)

	if expr, ok := resolveMask(text, tokens); ok {
		return &TemplateExpr{Text: expr}
	}

	return &Scalar{Text: text}
}

func scalarText(node ast.Node) string {
	node = unwrapYAML(node)

	switch n := node.(type) {
	case *ast.StringNode:
		return n.Value
	case *ast.LiteralNode:
		if n.Value != nil {
			return n.Value.Value
		}

		return ""
	case *ast.AliasNode:
		return n.Value.String()
	case nil:
		return ""
	default:
		if tok := node.GetToken(); tok != nil {
			return tok.Value
		}

		return node.String()
	}
}

// unwrapYAML resolves tag and anchor wrappers to the underlying value node.
func unwrapYAML(node ast.Node) ast.Node {
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

// resolveMask maps a scalar containing mask tokens back to the expression
// text. A scalar that is exactly one token yields that expression; mixed
// scalars (literal text interleaved with one or more actions) yield the
// expressions joined by a space, preserving the scalar position.
func resolveMask(text string, tokens map[string]string) (string, bool) {
	if tokens == nil || !strings.Contains(text, inlineMarker) {
		return "", false
	}

	if expr, ok := tokens[strings.TrimSpace(text)]; ok {
		return expr, true
	}

	var exprs []string

	rest := text

	for {
		start := strings.Index(rest, inlineMarker)
		if start < 0 {
			break
		}

		end := strings.Index(rest[start+len(inlineMarker):], "__")
		if end < 0 {
			break
		}

		token := rest[start : start+len(inlineMarker)+end+2]
		if expr, ok := tokens[token]; ok {
			exprs = append(exprs, expr)
		}

		rest = rest[start+len(inlineMarker)+end+2:]
	}

	if len(exprs) == 0 {
		return "", false
	}

	return strings.Join(exprs, " "), true
}

// deindent removes the common leading indentation of a fragment so YAML
// nested under control flow parses at the top level.
func deindent(fragment string) string {
	minIndent := -1

	for line := range strings.Lines(fragment) {
		content := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(content) == "" {
			continue
		}

		indent := leadingSpace(content)
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
	}

	if minIndent <= 0 {
		return fragment
	}

	var sb strings.Builder

	for line := range strings.Lines(fragment) {
		content := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(content) == "" {
			sb.WriteString(line)

			continue
		}

		sb.WriteString(line[minIndent:])
	}

	return sb.String()
}

func leadingSpace(s string) int {
	n := 0

	for _, r := range s {
		if r != ' ' && r != '\t' {
			break
		}

		n++
	}

	return n
}
