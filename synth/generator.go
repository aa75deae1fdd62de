package synth

import (
	"errors"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/helmschema/oracle"
	"go.jacobcolvin.com/helmschema/symbolic"
)

// Sentinel errors returned by the generator.
var (
	ErrInvalidDefaults = errors.New("invalid defaults document")
	ErrInvalidOption   = errors.New("invalid option")
)

// Generator folds value uses, the defaults document, and the resource-shape
// oracle into a single JSON Schema rooted at draft-07.
type Generator struct {
	oracle      oracle.Oracle
	title       string
	description string
	id          string
}

// Option configures a [Generator].
type Option func(*Generator)

// WithOracle sets the resource-shape oracle consulted for leaf types.
func WithOracle(o oracle.Oracle) Option {
	return func(g *Generator) {
		g.oracle = o
	}
}

// WithTitle sets the schema title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		g.title = title
	}
}

// WithDescription sets the schema description.
func WithDescription(desc string) Option {
	return func(g *Generator) {
		g.description = desc
	}
}

// WithID sets the schema $id.
func WithID(id string) Option {
	return func(g *Generator) {
		g.id = id
	}
}

// NewGenerator creates a [Generator] with the given options.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate synthesizes the override-document schema. The defaults document
// may be nil; uses are assumed sorted and deduplicated (see
// [symbolic.SortUses]).
func (g *Generator) Generate(uses []symbolic.ValueUse, defaults []byte) (*jsonschema.Schema, error) {
	root, err := schemaFromDefaults(defaults)
	if err != nil {
		return nil, err
	}

	f := &folder{
		gen:           g,
		root:          root,
		truthyTargets: collectTruthyTargets(uses),
		pathEvidence:  collectPathEvidence(uses),
		defaultsTyped: map[string]bool{},
		states:        map[string]*insertState{},
	}

	collectTypedPaths(root, "", f.defaultsTyped)

	g.warnUnknownResources(uses)

	for _, u := range uses {
		f.fold(u)
	}

	f.narrowEnums(uses)
	f.annotateGuards()

	pruneImpossible(root)

	root.Schema = "http://json-schema.org/draft-07/schema#"

	if g.title != "" {
		root.Title = g.title
	}

	if g.description != "" {
		root.Description = g.description
	}

	if g.id != "" {
		root.ID = g.id
	}

	if root.AdditionalProperties == nil {
		root.AdditionalProperties = falseSchema()
	}

	return root, nil
}

// warnUnknownResources asks the oracle for every distinct resource once, so
// removed or unknown apiVersions surface through the warning sink.
func (g *Generator) warnUnknownResources(uses []symbolic.ValueUse) {
	if g.oracle == nil {
		return
	}

	seen := map[string]bool{}

	for _, u := range uses {
		if u.Resource == nil || u.Resource.Kind == "" {
			continue
		}

		key := u.Resource.APIVersion + "/" + u.Resource.Kind
		if seen[key] {
			continue
		}

		seen[key] = true

		_, _ = g.oracle.ResourceSchema(*u.Resource)
	}
}

type insertState struct {
	hasUnguarded bool
	allGuarded   bool
	firstGuards  []symbolic.Guard
	seen         bool
}

type folder struct {
	gen           *Generator
	root          *jsonschema.Schema
	truthyTargets map[string]bool
	pathEvidence  map[string]bool
	defaultsTyped map[string]bool
	states        map[string]*insertState
}

func (f *folder) fold(u symbolic.ValueUse) {
	leaf := f.leafSchema(u)

	f.insert(u.SourceExpr, leaf, len(u.Guards) > 0, u.Guards)
}

// leafSchema computes the schema contributed by one value use: the oracle's
// answer when it has one, a boolean for pure guard observations with no
// other evidence, a name heuristic otherwise.
func (f *folder) leafSchema(u symbolic.ValueUse) *jsonschema.Schema {
	if f.gen.oracle != nil && u.Resource != nil && len(u.Path) > 0 {
		if s, ok := f.gen.oracle.SchemaAt(*u.Resource, u.Path); ok {
			s = strengthenLeaf(u.SourceExpr, s)

			if u.Kind == symbolic.KindFragment && !isStructured(s) {
				return &jsonschema.Schema{}
			}

			return s
		}
	}

	if len(u.Path) == 0 {
		if f.truthyTargets[u.SourceExpr] && !f.pathEvidence[u.SourceExpr] && !f.defaultsTyped[u.SourceExpr] {
			return &jsonschema.Schema{Type: typeBoolean}
		}

		return &jsonschema.Schema{}
	}

	s := heuristicLeaf(u.Path[len(u.Path)-1])

	if u.Kind == symbolic.KindFragment && !isStructured(s) {
		return &jsonschema.Schema{}
	}

	return s
}

// insert walks the dotted source expression and places the leaf, creating
// closed object schemas along the way. When a guarded and an unguarded use
// disagree on a location's type, the unguarded one wins.
func (f *folder) insert(sourceExpr string, leaf *jsonschema.Schema, guarded bool, guards []symbolic.Guard) {
	segments := strings.Split(sourceExpr, ".")

	node := f.root

	for _, seg := range segments[:len(segments)-1] {
		next, ok := descendInsert(node, seg)
		if !ok {
			// Structurally impossible: a nested field under a known leaf.
			return
		}

		node = next
	}

	last := segments[len(segments)-1]

	if last == "*" {
		f.insertItems(node, leaf)

		return
	}

	if !prepareObject(node) {
		return
	}

	state := f.states[sourceExpr]
	if state == nil {
		state = &insertState{
			hasUnguarded: f.defaultsTyped[sourceExpr],
			allGuarded:   true,
		}
		f.states[sourceExpr] = state
	}

	existing, exists := node.Properties[last]

	switch {
	case !exists || isOpen(existing):
		if exists && isOpen(leaf) {
			break
		}

		node.Properties[last] = leaf

	case typesConflict(existing, leaf) && guarded && state.hasUnguarded:
		// Guarded disagreement loses; the guard context survives only as
		// documentation metadata.

	case typesConflict(existing, leaf) && !guarded && !state.hasUnguarded:
		node.Properties[last] = leaf

	default:
		node.Properties[last] = Merge(existing, leaf)
	}

	if !guarded {
		state.hasUnguarded = true
		state.allGuarded = false
	} else if !state.seen {
		state.firstGuards = guards
	}

	state.seen = true
}

// descendInsert steps one source segment deeper, creating closed objects
// for identifier segments and array items for "*" segments.
func descendInsert(node *jsonschema.Schema, seg string) (*jsonschema.Schema, bool) {
	if seg == "*" {
		if t := schemaTypeName(node); t != "" && t != typeArray {
			return nil, false
		}

		node.Type = typeArray

		if node.Items == nil {
			node.Items = &jsonschema.Schema{}
		}

		return node.Items, true
	}

	if !prepareObject(node) {
		return nil, false
	}

	child, ok := node.Properties[seg]
	if !ok {
		child = &jsonschema.Schema{}
		node.Properties[seg] = child
	}

	return child, true
}

// prepareObject shapes a node as a closed object, refusing known leaves.
func prepareObject(node *jsonschema.Schema) bool {
	if hasPrimitiveType(node) {
		return false
	}

	if node.Type == "" && len(node.Types) == 0 {
		node.Type = typeObject
	}

	if node.Type != typeObject {
		return false
	}

	if node.Properties == nil {
		node.Properties = make(map[string]*jsonschema.Schema)
	}

	if node.AdditionalProperties == nil {
		node.AdditionalProperties = falseSchema()
	}

	return true
}

// insertItems folds a "p.*" use: the source path is an array whose items
// absorb the leaf.
func (f *folder) insertItems(node *jsonschema.Schema, leaf *jsonschema.Schema) {
	if t := schemaTypeName(node); t != "" && t != typeArray {
		return
	}

	node.Type = typeArray

	if node.Items == nil || isOpen(node.Items) {
		if !isOpen(leaf) {
			node.Items = leaf
		} else if node.Items == nil {
			node.Items = &jsonschema.Schema{}
		}

		return
	}

	node.Items = Merge(node.Items, leaf)
}

// narrowEnums applies guard-aware narrowing: a path whose equality guards
// accumulated a closed literal set, with no truthiness observation to
// contradict it, narrows to an enum.
func (f *folder) narrowEnums(uses []symbolic.ValueUse) {
	observed := map[string][]string{}

	for _, u := range uses {
		for _, g := range u.Guards {
			if g.Kind == symbolic.GuardEq {
				observed[g.Path] = append(observed[g.Path], g.Value)
			}
		}
	}

	for path, values := range observed {
		if f.truthyTargets[path] {
			continue
		}

		node := f.nodeAt(path)
		if node == nil || node.Enum != nil || node.Properties != nil || node.Items != nil {
			continue
		}

		if t := schemaTypeName(node); t != "" && t != typeString {
			continue
		}

		slices.Sort(values)
		values = slices.Compact(values)

		enum := make([]any, len(values))
		for i, v := range values {
			enum[i] = v
		}

		node.Type = typeString
		node.Enum = enum
	}
}

// annotateGuards records the guard context of paths that are only ever
// read under guards, as a $comment.
func (f *folder) annotateGuards() {
	for path, state := range f.states {
		if !state.allGuarded || len(state.firstGuards) == 0 {
			continue
		}

		node := f.nodeAt(path)
		if node == nil || node.Comment != "" {
			continue
		}

		parts := make([]string, 0, len(state.firstGuards))
		for _, g := range state.firstGuards {
			parts = append(parts, g.String())
		}

		node.Comment = "only rendered when: " + strings.Join(parts, " && ")
	}
}

func (f *folder) nodeAt(dotted string) *jsonschema.Schema {
	node := f.root

	for _, seg := range strings.Split(dotted, ".") {
		next, ok := node.Properties[seg]
		if !ok {
			return nil
		}

		node = next
	}

	return node
}

func collectTruthyTargets(uses []symbolic.ValueUse) map[string]bool {
	out := map[string]bool{}

	for _, u := range uses {
		for _, g := range u.Guards {
			switch g.Kind {
			case symbolic.GuardTruthy, symbolic.GuardNot:
				out[g.Path] = true
			case symbolic.GuardOr:
				for _, p := range g.Paths {
					out[p] = true
				}
			case symbolic.GuardEq:
			}
		}
	}

	return out
}

func collectPathEvidence(uses []symbolic.ValueUse) map[string]bool {
	out := map[string]bool{}

	for _, u := range uses {
		if len(u.Path) > 0 {
			out[u.SourceExpr] = true
		}
	}

	return out
}

// collectTypedPaths records every dotted path the defaults document typed,
// so defaults count as unguarded evidence during folding.
func collectTypedPaths(s *jsonschema.Schema, prefix string, out map[string]bool) {
	for key, child := range s.Properties {
		dotted := key
		if prefix != "" {
			dotted = prefix + "." + key
		}

		if schemaTypeName(child) != "" {
			out[dotted] = true
		}

		collectTypedPaths(child, dotted, out)
	}
}

// pruneImpossible drops property maps that ended up under primitive leaf
// types.
func pruneImpossible(s *jsonschema.Schema) {
	if s == nil {
		return
	}

	if hasPrimitiveType(s) && s.Properties != nil {
		s.Properties = nil
	}

	for _, child := range s.Properties {
		pruneImpossible(child)
	}

	if s.Items != nil {
		pruneImpossible(s.Items)
	}

	if s.AdditionalProperties != nil {
		pruneImpossible(s.AdditionalProperties)
	}
}

func schemaTypeName(s *jsonschema.Schema) string {
	if s.Type != "" {
		return s.Type
	}

	if len(s.Types) == 1 {
		return s.Types[0]
	}

	return ""
}

func hasPrimitiveType(s *jsonschema.Schema) bool {
	switch schemaTypeName(s) {
	case typeBoolean, typeInteger, typeNumber, typeString:
		return true
	}

	return false
}

func isOpen(s *jsonschema.Schema) bool {
	return s == nil || (s.Type == "" && len(s.Types) == 0 &&
		s.Properties == nil && s.Items == nil && s.Enum == nil &&
		s.AdditionalProperties == nil &&
		len(s.AllOf) == 0 && len(s.AnyOf) == 0 && len(s.OneOf) == 0 && s.Not == nil)
}

func isStructured(s *jsonschema.Schema) bool {
	switch schemaTypeName(s) {
	case typeObject, typeArray:
		return true
	}

	return s.Properties != nil || s.Items != nil ||
		(s.AdditionalProperties != nil && !isFalse(s.AdditionalProperties))
}

func isFalse(s *jsonschema.Schema) bool {
	return s != nil && s.Not != nil && isOpen(s.Not)
}

func typesConflict(a, b *jsonschema.Schema) bool {
	ta, tb := schemaTypeName(a), schemaTypeName(b)

	return ta != "" && tb != "" && ta != tb
}
