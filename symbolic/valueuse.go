package symbolic

import (
	"slices"
	"strings"
)

// ValueKind classifies what a template expression emits at its location.
type ValueKind int

const (
	// KindScalar is a single scalar value.
	KindScalar ValueKind = iota
	// KindFragment is structured YAML (toYaml, nindent, tpl, and friends).
	KindFragment
)

// String implements [fmt.Stringer].
func (k ValueKind) String() string {
	if k == KindFragment {
		return "Fragment"
	}

	return "Scalar"
}

// ResourceRef identifies the Kubernetes-style resource in scope. Either
// field may be empty when only one of the two was statically available.
// APIVersionCandidates captures an apiVersion that expanded to one of
// several literals from an included template.
type ResourceRef struct {
	APIVersion           string
	Kind                 string
	APIVersionCandidates []string
}

// IsZero reports whether nothing was detected.
func (r ResourceRef) IsZero() bool {
	return r.APIVersion == "" && r.Kind == "" && len(r.APIVersionCandidates) == 0
}

func (r ResourceRef) compareKey() string {
	return r.APIVersion + "\x00" + r.Kind + "\x00" + strings.Join(r.APIVersionCandidates, ",")
}

// ValueUse records that some override-document path is read at some YAML
// location under some guards inside some resource kind.
type ValueUse struct {
	// SourceExpr is the dotted path into the override document,
	// e.g. "ingress.tls".
	SourceExpr string
	// Path is where the value lands in the rendered document.
	Path YamlPath
	// Kind classifies the emission.
	Kind ValueKind
	// Guards hold the enclosing control-flow obligations in encounter
	// order; logically conjunctive.
	Guards []Guard
	// Resource is nil when the use sits above the first apiVersion/kind
	// pair of its document.
	Resource *ResourceRef
}

// Compare orders uses by (SourceExpr, Path, Kind, Resource, Guards), the
// tuple that also defines their identity.
func (u ValueUse) Compare(other ValueUse) int {
	if c := strings.Compare(u.SourceExpr, other.SourceExpr); c != 0 {
		return c
	}

	if c := u.Path.Compare(other.Path); c != 0 {
		return c
	}

	if c := int(u.Kind) - int(other.Kind); c != 0 {
		return c
	}

	if c := strings.Compare(resourceKey(u.Resource), resourceKey(other.Resource)); c != 0 {
		return c
	}

	return strings.Compare(guardsKey(u.Guards), guardsKey(other.Guards))
}

// Equal reports identity on the full comparison tuple.
func (u ValueUse) Equal(other ValueUse) bool {
	return u.Compare(other) == 0
}

// SortUses sorts uses into their canonical order and drops duplicates,
// making the output stable across equivalent tree shapes.
func SortUses(uses []ValueUse) []ValueUse {
	slices.SortFunc(uses, ValueUse.Compare)

	return slices.CompactFunc(uses, ValueUse.Equal)
}

func resourceKey(r *ResourceRef) string {
	if r == nil {
		return ""
	}

	return "\x01" + r.compareKey()
}

func guardsKey(guards []Guard) string {
	var sb strings.Builder

	for _, g := range guards {
		sb.WriteString(g.String())
		sb.WriteByte('\x00')
	}

	return sb.String()
}
