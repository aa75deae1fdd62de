package symbolic

import (
	"strconv"
	"strings"

	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
)

// useSite is the resolved YAML location of one expression action.
type useSite struct {
	path        YamlPath
	keyPosition bool
}

// locator answers "where does this expression land" during the walk. Sites
// are keyed by expression text and consumed in source order, which is also
// the interpreter's walk order, so identical expressions at different
// locations stay correctly paired.
type locator struct {
	queues map[string][]useSite
}

// newLocator sanitizes src, parses the placeholder document, and indexes
// each expression action's location. A sanitized document that fails to
// parse yields an empty locator; the interpreter then falls back to
// structural path tracking.
func newLocator(src string) *locator {
	loc := &locator{queues: make(map[string][]useSite)}

	sanitized, actions := sanitizeSource(src)
	if len(actions) == 0 {
		return loc
	}

	file, err := parser.ParseBytes([]byte(sanitized), 0)
	if err != nil {
		return loc
	}

	sites := make(map[int]useSite, len(actions))

	for _, doc := range file.Docs {
		if doc.Body != nil {
			collectSites(doc.Body, nil, sites)
		}
	}

	for i, action := range actions {
		site, ok := sites[i]
		if !ok {
			continue
		}

		loc.queues[action.text] = append(loc.queues[action.text], site)
	}

	return loc
}

// next pops the site for the next occurrence of an expression.
func (l *locator) next(exprText string) (useSite, bool) {
	q := l.queues[exprText]
	if len(q) == 0 {
		return useSite{}, false
	}

	l.queues[exprText] = q[1:]

	return q[0], true
}

// peek returns the site the next occurrence of an expression will get,
// without consuming it.
func (l *locator) peek(exprText string) (useSite, bool) {
	q := l.queues[exprText]
	if len(q) == 0 {
		return useSite{}, false
	}

	return q[0], true
}

func collectSites(node ast.Node, path YamlPath, sites map[int]useSite) {
	node = unwrapLocNode(node)
	if node == nil {
		return
	}

	switch n := node.(type) {
	case *ast.MappingNode:
		for _, mvn := range n.Values {
			collectPairSites(mvn, path, sites)
		}
	case *ast.MappingValueNode:
		collectPairSites(n, path, sites)
	case *ast.SequenceNode:
		itemPath := path.WithStar()
		for _, item := range n.Values {
			collectSites(item, itemPath, sites)
		}
	default:
		for _, idx := range placeholderIndexes(locScalarText(node)) {
			sites[idx] = useSite{path: path}
		}
	}
}

func collectPairSites(mvn *ast.MappingValueNode, path YamlPath, sites map[int]useSite) {
	keyText := locScalarText(mvn.Key)

	for _, idx := range placeholderIndexes(keyText) {
		sites[idx] = useSite{path: path, keyPosition: true}
	}

	collectSites(mvn.Value, path.WithKey(keyText), sites)
}

func locScalarText(node ast.Node) string {
	node = unwrapLocNode(node)

	switch n := node.(type) {
	case *ast.StringNode:
		return n.Value
	case *ast.LiteralNode:
		if n.Value != nil {
			return n.Value.Value
		}

		return ""
	case nil:
		return ""
	default:
		if tok := node.GetToken(); tok != nil {
			return tok.Value
		}

		return node.String()
	}
}

func unwrapLocNode(node ast.Node) ast.Node {
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

// placeholderIndexes extracts every placeholder index embedded in a scalar.
func placeholderIndexes(text string) []int {
	if !strings.Contains(text, usePlaceholder) {
		return nil
	}

	var out []int

	rest := text

	for {
		start := strings.Index(rest, usePlaceholder)
		if start < 0 {
			break
		}

		rest = rest[start+len(usePlaceholder):]

		end := strings.Index(rest, "__")
		if end < 0 {
			break
		}

		if idx, err := strconv.Atoi(rest[:end]); err == nil {
			out = append(out, idx)
		}

		rest = rest[end+2:]
	}

	return out
}
