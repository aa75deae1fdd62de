package oracle

import (
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/helmschema/symbolic"
)

// maxExpandDepth bounds reference expansion independently of the cycle
// guard, so pathological definition graphs cannot blow the stack.
const maxExpandDepth = 64

// refResolver resolves a $ref string in the context of the document it
// appears in. The file context lets the upstream store follow cross-file
// references; document-local implementations ignore it.
type refResolver interface {
	resolveRef(file, ref string) (string, *jsonschema.Schema, bool)
}

// descendSchema follows a YAML path through a schema: properties for keys,
// additionalProperties for absent keys on declared objects, items for [*]
// segments, transparently trying every allOf/anyOf/oneOf alternative.
func descendSchema(r refResolver, file string, s *jsonschema.Schema, path symbolic.YamlPath) (string, *jsonschema.Schema, bool) {
	for _, seg := range path {
		var ok bool

		file, s, ok = descendOne(r, file, s, seg)
		if !ok {
			return "", nil, false
		}
	}

	return file, s, true
}

func descendOne(r refResolver, file string, s *jsonschema.Schema, seg string) (string, *jsonschema.Schema, bool) {
	file, s, ok := chaseRef(r, file, s)
	if !ok {
		return "", nil, false
	}

	for _, branch := range append(append(append([]*jsonschema.Schema{}, s.AllOf...), s.AnyOf...), s.OneOf...) {
		if f, result, found := descendOne(r, file, branch, seg); found {
			return f, result, true
		}
	}

	key, isItem := strings.CutSuffix(seg, "[*]")

	next, ok := s.Properties[key]
	if !ok {
		next = s.AdditionalProperties
		if next == nil || !isDescendable(next) {
			return "", nil, false
		}
	}

	if !isItem {
		return file, next, true
	}

	file, next, ok = chaseRef(r, file, next)
	if !ok || next.Items == nil {
		return "", nil, false
	}

	return file, next.Items, true
}

func chaseRef(r refResolver, file string, s *jsonschema.Schema) (string, *jsonschema.Schema, bool) {
	for range maxExpandDepth {
		if s == nil {
			return "", nil, false
		}

		if s.Ref == "" {
			return file, s, true
		}

		var ok bool

		file, s, ok = r.resolveRef(file, s.Ref)
		if !ok {
			return "", nil, false
		}
	}

	return "", nil, false
}

// isDescendable filters out boolean-equivalent schemas: a bare true/false
// schema declares no object shape to descend into.
func isDescendable(s *jsonschema.Schema) bool {
	return s.Type != "" || len(s.Types) > 0 || s.Ref != "" ||
		s.Properties != nil || s.Items != nil ||
		len(s.AllOf) > 0 || len(s.AnyOf) > 0 || len(s.OneOf) > 0
}

// expandSchema deep-copies a schema subtree with every reference resolved
// in place. Cyclic references are cut by dropping the ref; the visited set
// keys on (file, ref).
func expandSchema(r refResolver, file string, s *jsonschema.Schema, depth int, visited map[string]bool) *jsonschema.Schema {
	if s == nil || depth > maxExpandDepth {
		return s
	}

	if s.Ref != "" {
		key := file + "#" + s.Ref
		if visited[key] {
			return &jsonschema.Schema{}
		}

		visited[key] = true
		defer delete(visited, key)

		nf, target, ok := r.resolveRef(file, s.Ref)
		if !ok {
			return &jsonschema.Schema{}
		}

		return expandSchema(r, nf, target, depth+1, visited)
	}

	out := &jsonschema.Schema{
		Type:        s.Type,
		Types:       append([]string(nil), s.Types...),
		Enum:        append([]any(nil), s.Enum...),
		Const:       s.Const,
		Format:      s.Format,
		Pattern:     s.Pattern,
		Description: s.Description,
		Required:    append([]string(nil), s.Required...),
	}

	if s.Properties != nil {
		out.Properties = make(map[string]*jsonschema.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = expandSchema(r, file, v, depth+1, visited)
		}
	}

	if s.PatternProperties != nil {
		out.PatternProperties = make(map[string]*jsonschema.Schema, len(s.PatternProperties))
		for k, v := range s.PatternProperties {
			out.PatternProperties[k] = expandSchema(r, file, v, depth+1, visited)
		}
	}

	if s.AdditionalProperties != nil {
		if isDescendable(s.AdditionalProperties) {
			out.AdditionalProperties = expandSchema(r, file, s.AdditionalProperties, depth+1, visited)
		} else {
			out.AdditionalProperties = s.AdditionalProperties
		}
	}

	if s.Items != nil {
		out.Items = expandSchema(r, file, s.Items, depth+1, visited)
	}

	out.AllOf = expandSchemas(r, file, s.AllOf, depth, visited)
	out.AnyOf = expandSchemas(r, file, s.AnyOf, depth, visited)
	out.OneOf = expandSchemas(r, file, s.OneOf, depth, visited)

	return out
}

func expandSchemas(r refResolver, file string, in []*jsonschema.Schema, depth int, visited map[string]bool) []*jsonschema.Schema {
	if in == nil {
		return nil
	}

	out := make([]*jsonschema.Schema, len(in))
	for i, s := range in {
		out[i] = expandSchema(r, file, s, depth+1, visited)
	}

	return out
}

// localDefinitions resolves "#/definitions/<name>" pointers inside a single
// document.
type localDefinitions struct {
	root *jsonschema.Schema
}

func (l localDefinitions) resolveRef(file, ref string) (string, *jsonschema.Schema, bool) {
	name, ok := strings.CutPrefix(ref, "#/definitions/")
	if !ok {
		if name, ok = strings.CutPrefix(ref, "#/$defs/"); !ok {
			return "", nil, false
		}

		if target, found := l.root.Defs[unescapePointer(name)]; found {
			return file, target, true
		}

		return "", nil, false
	}

	target, found := l.root.Definitions[unescapePointer(name)]
	if !found {
		return "", nil, false
	}

	return file, target, true
}

// unescapePointer undoes JSON Pointer escaping (~1 -> /, ~0 -> ~).
func unescapePointer(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")

	return strings.ReplaceAll(s, "~0", "~")
}
