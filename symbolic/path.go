package symbolic

import "strings"

// YamlPath locates a position in a rendered document: an ordered sequence of
// object keys, where a "[*]" suffix on a segment means "any element of the
// sequence at that key". The empty path is the document root.
type YamlPath []string

// WithKey returns a copy of the path extended by an object key.
func (p YamlPath) WithKey(key string) YamlPath {
	out := make(YamlPath, len(p), len(p)+1)
	copy(out, p)

	return append(out, key)
}

// WithStar returns a copy of the path whose innermost segment carries the
// "[*]" sequence marker. Entering a sequence at the document root leaves the
// path empty: there is no segment to mark.
func (p YamlPath) WithStar() YamlPath {
	if len(p) == 0 {
		return nil
	}

	out := make(YamlPath, len(p))
	copy(out, p)

	last := out[len(out)-1]
	if !strings.HasSuffix(last, "[*]") {
		out[len(out)-1] = last + "[*]"
	}

	return out
}

// String joins the segments with dots, e.g. "spec.ports[*].port".
func (p YamlPath) String() string {
	return strings.Join(p, ".")
}

// Equal reports segment-wise equality.
func (p YamlPath) Equal(other YamlPath) bool {
	if len(p) != len(other) {
		return false
	}

	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}

	return true
}

// Compare orders paths lexicographically by segment.
func (p YamlPath) Compare(other YamlPath) int {
	for i := range min(len(p), len(other)) {
		if c := strings.Compare(p[i], other[i]); c != 0 {
			return c
		}
	}

	switch {
	case len(p) < len(other):
		return -1
	case len(p) > len(other):
		return 1
	}

	return 0
}
