package symbolic

import (
	"regexp"
	"slices"
	"strings"

	"go.jacobcolvin.com/helmschema/fused"
)

// DefaultMaxInlineDepth caps recursive include inlining. The cap is both a
// termination proof for self-recursive helpers and an observability hook.
const DefaultMaxInlineDepth = 10

// Interpreter walks fused documents in the context of a shared define index
// and emits value uses. It is stateless across documents and safe to reuse.
type Interpreter struct {
	defines  *fused.DefineIndex
	parser   fused.Parser
	maxDepth int
}

// InterpOption configures an [Interpreter].
type InterpOption func(*Interpreter)

// WithMaxInlineDepth overrides the include-inlining depth cap.
func WithMaxInlineDepth(depth int) InterpOption {
	return func(it *Interpreter) {
		if depth > 0 {
			it.maxDepth = depth
		}
	}
}

// WithParser sets the parser used to inline literal file loads.
func WithParser(p fused.Parser) InterpOption {
	return func(it *Interpreter) {
		it.parser = p
	}
}

// NewInterpreter creates an [Interpreter] over a define index.
func NewInterpreter(defines *fused.DefineIndex, opts ...InterpOption) *Interpreter {
	it := &Interpreter{
		defines:  defines,
		parser:   fused.ScanParser{},
		maxDepth: DefaultMaxInlineDepth,
	}

	for _, opt := range opts {
		opt(it)
	}

	return it
}

// Interpret walks one fused document and returns its value uses, sorted and
// deduplicated. src must be the source text doc was parsed from; it is
// sanitized to recover the YAML location of each template action.
func (it *Interpreter) Interpret(src string, doc *fused.Document) []ValueUse {
	w := &walker{
		interp:  it,
		locator: newLocator(src),
		vars:    make(map[string][]string),
	}

	w.walk(doc.Items, nil)

	return SortUses(w.uses)
}

type walker struct {
	interp     *Interpreter
	locator    *locator
	uses       []ValueUse
	guards     []Guard
	resource   *ResourceRef
	vars       map[string][]string
	dotBinding string
	depth      int
	inlined    bool
}

func (w *walker) walk(items []fused.Node, path YamlPath) {
	for _, item := range items {
		w.walkNode(item, path)
	}
}

func (w *walker) walkNode(node fused.Node, path YamlPath) {
	switch n := node.(type) {
	case *fused.Document:
		w.walk(n.Items, path)

	case *fused.Mapping:
		for _, pair := range n.Items {
			w.walkPair(pair, path)
		}

	case *fused.Sequence:
		seqPath := path.WithStar()
		for _, item := range n.Items {
			w.walkNode(item, seqPath)
		}

	case *fused.TemplateExpr:
		w.handleExpr(n.Text, path)

	case *fused.If:
		condGuards := ParseCondition(n.Cond)
		w.emitHeaderUses(n.Cond, nil)

		save := len(w.guards)
		w.guards = append(w.guards, condGuards...)
		w.walk(n.Then, path)
		w.guards = w.guards[:save]

		w.guards = append(w.guards, MirrorCondition(condGuards)...)
		w.walk(n.Else, path)
		w.guards = w.guards[:save]

	case *fused.With:
		w.walkWith(n, path)

	case *fused.Range:
		w.walkRange(n, path)

	case *fused.Block:
		// A block's default body renders at its own site.
		w.walk(n.Body, path)

	case *fused.Define, *fused.Scalar, *fused.TemplateComment, *fused.Pair:
		// Defines are reached only through inlining; scalars and comments
		// carry no uses. Pairs appear under mappings.
	}
}

// walkGuardedBody handles with and range, which share their shape: header
// paths are emitted as uses and pushed as truthiness guards, the else branch
// restores the guards at entry.
func (w *walker) walkGuardedBody(header string, headerPath YamlPath, body, elseBody []fused.Node, path YamlPath) {
	w.emitHeaderUses(header, headerPath)

	save := len(w.guards)

	for _, p := range ExtractValuesPaths(header) {
		w.guards = append(w.guards, Truthy(p))
	}

	w.walk(body, path)
	w.guards = w.guards[:save]

	w.walk(elseBody, path)
}

// walkWith handles with: header paths are emitted and pushed as guards,
// and a single-path header binds the dot, so toYaml-style re-emissions of
// the with value attribute to the right override path.
func (w *walker) walkWith(n *fused.With, path YamlPath) {
	headerPaths := ExtractValuesPaths(n.Header)

	saveBinding := w.dotBinding

	w.dotBinding = ""
	if len(headerPaths) == 1 {
		w.dotBinding = headerPaths[0]
	}

	w.walkGuardedBody(n.Header, nil, n.Body, n.Else, path)

	w.dotBinding = saveBinding
}

// walkRange handles range like with, additionally binding the loop element:
// inside range .Values.p, a bare-dot expression (or the loop variable)
// reads any element of p, recorded as the source path "p.*".
func (w *walker) walkRange(n *fused.Range, path YamlPath) {
	headerPaths := ExtractValuesPaths(n.Header)

	var element string

	if len(headerPaths) == 1 {
		element = headerPaths[0] + ".*"
	}

	if element != "" {
		if name, ok := rangeElementVar(n.Header); ok {
			w.vars[name] = []string{element}
			defer delete(w.vars, name)
		}
	}

	saveBinding := w.dotBinding
	w.dotBinding = element

	w.walkGuardedBody(n.Header, w.rangeSitePath(n.Body, path), n.Body, n.Else, path)

	w.dotBinding = saveBinding
}

// rangeElementVar extracts the element variable of a "$i, $v := ..." or
// "$v := ..." range header.
func rangeElementVar(header string) (string, bool) {
	assign, _, ok := strings.Cut(header, ":=")
	if !ok {
		return "", false
	}

	vars := strings.Split(assign, ",")

	last := strings.TrimSpace(vars[len(vars)-1])
	if name, ok := strings.CutPrefix(last, "$"); ok && name != "" {
		return name, true
	}

	return "", false
}

// emitHeaderUses records the override paths referenced by a control-flow
// header, before its guards are pushed, so they carry only the outer guard
// context.
func (w *walker) emitHeaderUses(header string, path YamlPath) {
	for _, p := range ExtractValuesPaths(header) {
		w.emit(p, path, KindScalar)
	}
}

func (w *walker) walkPair(pair *fused.Pair, path YamlPath) {
	keyScalar, keyIsScalar := pair.Key.(*fused.Scalar)

	if keyExpr, ok := pair.Key.(*fused.TemplateExpr); ok {
		w.handleExpr(keyExpr.Text, path)
	}

	if keyIsScalar && len(path) == 0 {
		w.trackResource(keyScalar.Text, pair.Value)
	}

	childPath := path
	if keyIsScalar {
		childPath = path.WithKey(keyScalar.Text)
	}

	if pair.Value != nil {
		w.walkNode(pair.Value, childPath)
	}
}

// trackResource updates the current resource reference from top-level
// apiVersion / kind pairs. A templated apiVersion that resolves to an
// included define contributes its literal scalars as candidates.
func (w *walker) trackResource(key string, value fused.Node) {
	switch key {
	case "apiVersion", "kind":
	default:
		return
	}

	current := ResourceRef{}
	if w.resource != nil {
		current = *w.resource
	}

	switch v := value.(type) {
	case *fused.Scalar:
		if key == "apiVersion" {
			current.APIVersion = v.Text
			current.APIVersionCandidates = nil
		} else {
			current.Kind = v.Text
		}

	case *fused.TemplateExpr:
		if key != "apiVersion" {
			return
		}

		candidates := w.apiVersionCandidates(v.Text)
		if len(candidates) == 0 {
			return
		}

		current.APIVersion = ""
		current.APIVersionCandidates = candidates

	default:
		return
	}

	w.resource = &current
}

// apiVersionCandidates resolves a templated apiVersion through the define
// index and collects the literal scalars its body can produce.
func (w *walker) apiVersionCandidates(expr string) []string {
	name, ok := parseIncludeName(expr)
	if !ok {
		return nil
	}

	body, ok := w.interp.defines.Get(name)
	if !ok {
		return nil
	}

	var out []string

	collectScalarTexts(body, &out)
	slices.Sort(out)

	return slices.Compact(out)
}

func collectScalarTexts(items []fused.Node, out *[]string) {
	for _, item := range items {
		switch n := item.(type) {
		case *fused.Scalar:
			if text := strings.TrimSpace(n.Text); text != "" {
				*out = append(*out, text)
			}
		case *fused.If:
			collectScalarTexts(n.Then, out)
			collectScalarTexts(n.Else, out)
		case *fused.Mapping:
			for _, p := range n.Items {
				if p.Value != nil {
					collectScalarTexts([]fused.Node{p.Value}, out)
				}
			}
		case *fused.Sequence:
			collectScalarTexts(n.Items, out)
		}
	}
}

func (w *walker) handleExpr(text string, path YamlPath) {
	isAssign := strings.Contains(text, ":=")

	kind := KindScalar
	if IsFragmentExpr(text) {
		kind = KindFragment
	}

	// Assignments render nothing, so the sanitizer assigns them no site;
	// their reads attach to the structural location.
	sitePath := path
	if !isAssign {
		sitePath = w.sitePath(text, path)
	}

	paths := ExtractValuesPaths(text)

	if isAssign {
		if name, ok := parseAssignName(text); ok {
			w.vars[name] = paths
		}
	} else {
		for name, varPaths := range w.vars {
			if referencesVar(text, name) {
				paths = append(paths, varPaths...)
			}
		}

		if w.dotBinding != "" && isBareDotExpr(text) {
			paths = append(paths, w.dotBinding)
		}
	}

	slices.Sort(paths)
	paths = slices.Compact(paths)

	for _, p := range paths {
		w.emit(p, sitePath, kind)
	}

	if isAssign {
		return
	}

	w.inline(text, sitePath)
}

// inline expands include/template calls with a literal name, and literal
// .Files.Get loads, walking the body at the expression's own site under the
// current guards. Dynamic targets and missing definitions degrade to the
// raw use already recorded.
func (w *walker) inline(text string, sitePath YamlPath) {
	if w.depth >= w.interp.maxDepth {
		return
	}

	if name, ok := parseIncludeName(text); ok {
		body, found := w.interp.defines.Get(name)
		if !found {
			return
		}

		w.walkInlined(body, sitePath)

		return
	}

	if file, ok := parseFilesGet(text); ok {
		src, found := w.interp.defines.GetFile(file)
		if !found {
			return
		}

		doc, err := w.interp.parser.Parse(src)
		if err != nil {
			return
		}

		w.walkInlined(doc.Items, sitePath)
	}
}

func (w *walker) walkInlined(items []fused.Node, sitePath YamlPath) {
	wasInlined := w.inlined
	w.inlined = true
	w.depth++

	w.walk(items, sitePath)

	w.depth--
	w.inlined = wasInlined
}

// sitePath resolves where an expression lands. The locator knows the true
// location even across control-flow boundaries; inlined bodies adopt the
// caller's site, and a locator miss falls back to the structural path.
func (w *walker) sitePath(text string, structural YamlPath) YamlPath {
	if w.inlined {
		return structural
	}

	site, ok := w.locator.next(text)
	if !ok {
		return structural
	}

	return site.path
}

// rangeSitePath derives the YAML location a range sits at from the location
// its first body expression will land on: cut at the first sequence marker,
// or step out of a value position.
func (w *walker) rangeSitePath(body []fused.Node, structural YamlPath) YamlPath {
	if w.inlined {
		return structural
	}

	expr, ok := firstExpr(body)
	if !ok {
		return structural
	}

	site, ok := w.locator.peek(expr)
	if !ok {
		return structural
	}

	for i, seg := range site.path {
		if strings.HasSuffix(seg, "[*]") {
			out := make(YamlPath, i+1)
			copy(out, site.path[:i+1])
			out[i] = strings.TrimSuffix(out[i], "[*]")

			return out
		}
	}

	if !site.keyPosition && len(site.path) > 0 {
		return site.path[:len(site.path)-1]
	}

	return site.path
}

func firstExpr(items []fused.Node) (string, bool) {
	for _, item := range items {
		switch n := item.(type) {
		case *fused.TemplateExpr:
			return n.Text, true
		case *fused.Mapping:
			for _, p := range n.Items {
				if expr, ok := p.Key.(*fused.TemplateExpr); ok {
					return expr.Text, true
				}

				if p.Value != nil {
					if expr, ok := firstExpr([]fused.Node{p.Value}); ok {
						return expr, true
					}
				}
			}
		case *fused.Sequence:
			if expr, ok := firstExpr(n.Items); ok {
				return expr, true
			}
		case *fused.If:
			if expr, ok := firstExpr(n.Then); ok {
				return expr, true
			}
		}
	}

	return "", false
}

func (w *walker) emit(sourceExpr string, path YamlPath, kind ValueKind) {
	var resource *ResourceRef

	if w.resource != nil {
		copied := *w.resource
		resource = &copied
	}

	w.uses = append(w.uses, ValueUse{
		SourceExpr: sourceExpr,
		Path:       slices.Clone(path),
		Kind:       kind,
		Guards:     slices.Clone(w.guards),
		Resource:   resource,
	})
}

var (
	includeNameRE = regexp.MustCompile(`(?:include|template)\s+"([^"]+)"`)
	filesGetRE    = regexp.MustCompile(`\.Files\.Get\s+"([^"]+)"`)
	assignNameRE  = regexp.MustCompile(`^\s*\$(\w+)\s*:=`)
)

// IsFragmentExpr reports whether an expression likely emits structured YAML
// rather than a single scalar.
func IsFragmentExpr(text string) bool {
	if strings.Contains(text, "toYaml") ||
		strings.Contains(text, "nindent") ||
		strings.Contains(text, "indent") ||
		strings.Contains(text, "tpl") {
		return true
	}

	return (strings.Contains(text, "include") || strings.Contains(text, "template")) &&
		(strings.Contains(text, "nindent") || strings.Contains(text, "toYaml"))
}

func parseIncludeName(text string) (string, bool) {
	m := includeNameRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	return m[1], true
}

func parseFilesGet(text string) (string, bool) {
	m := filesGetRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	return m[1], true
}

func parseAssignName(text string) (string, bool) {
	m := assignNameRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	return m[1], true
}

// isBareDotExpr reports whether the expression reads the bound dot value
// itself: "." as a standalone token, as in "." or "toYaml . | nindent 4".
// Include calls pass the dot as context rather than emitting it, so they
// do not count.
func isBareDotExpr(text string) bool {
	if _, ok := parseIncludeName(text); ok {
		return false
	}

	for field := range strings.FieldsSeq(text) {
		if field == "." {
			return true
		}
	}

	return false
}

// referencesVar reports whether text mentions $name outside a longer
// identifier.
func referencesVar(text, name string) bool {
	needle := "$" + name

	for idx := strings.Index(text, needle); idx >= 0; {
		after := idx + len(needle)
		if after >= len(text) || !isWordByte(text[after]) {
			return true
		}

		next := strings.Index(text[after:], needle)
		if next < 0 {
			return false
		}

		idx = after + next
	}

	return false
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
