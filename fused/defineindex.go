package fused

// DefineIndex collects named template definitions across files so the
// symbolic interpreter can inline them by name. It also keeps a flat map
// from file path to raw source for template expressions that load a literal
// file and inline its YAML.
//
// Build the index once per chart, then treat it as read-only.
type DefineIndex struct {
	defines map[string][]Node
	files   map[string]string
}

// NewDefineIndex creates an empty [DefineIndex].
func NewDefineIndex() *DefineIndex {
	return &DefineIndex{
		defines: make(map[string][]Node),
		files:   make(map[string]string),
	}
}

// AddSource parses src with parser and records every define encountered,
// descending into control-flow branches. Last writer wins on name collision.
func (idx *DefineIndex) AddSource(parser Parser, src string) error {
	doc, err := parser.Parse(src)
	if err != nil {
		return err
	}

	idx.AddDocument(doc)

	return nil
}

// AddDocument records every define in an already-parsed document.
func (idx *DefineIndex) AddDocument(doc *Document) {
	idx.collect(doc.Items)
}

// AddFileSource registers raw file content under its chart-relative path,
// for .Files.Get-style literal loads.
func (idx *DefineIndex) AddFileSource(path, src string) {
	idx.files[path] = src
}

// Get returns the body of a named template definition.
func (idx *DefineIndex) Get(name string) ([]Node, bool) {
	body, ok := idx.defines[name]

	return body, ok
}

// GetFile returns registered file content by its chart-relative path.
func (idx *DefineIndex) GetFile(path string) (string, bool) {
	src, ok := idx.files[path]

	return src, ok
}

// Names returns the number of recorded definitions.
func (idx *DefineIndex) Names() int {
	return len(idx.defines)
}

func (idx *DefineIndex) collect(items []Node) {
	for _, item := range items {
		switch n := item.(type) {
		case *Define:
			idx.defines[n.Name] = n.Body
			idx.collect(n.Body)
		case *Block:
			idx.defines[blockName(n.Name)] = n.Body
			idx.collect(n.Body)
		case *If:
			idx.collect(n.Then)
			idx.collect(n.Else)
		case *Range:
			idx.collect(n.Body)
			idx.collect(n.Else)
		case *With:
			idx.collect(n.Body)
			idx.collect(n.Else)
		case *Mapping:
			for _, p := range n.Items {
				if p.Value != nil {
					idx.collect([]Node{p.Value})
				}
			}
		case *Sequence:
			idx.collect(n.Items)
		}
	}
}

// blockName extracts the quoted name from a block header, which may carry a
// trailing argument.
func blockName(header string) string {
	name, _ := splitKeyword(header)

	return dequote(name)
}
