package chart

import (
	"strings"

	"go.jacobcolvin.com/helmschema/symbolic"
)

// ScopeUse re-roots a sub-chart's value use under its alias prefix, so a
// sub-chart referenced as "child" reading .Values.foo surfaces as
// child.foo. Paths under global stay at the root: the template engine
// shares them across the whole chart tree.
func ScopeUse(u symbolic.ValueUse, prefix []string) symbolic.ValueUse {
	if len(prefix) == 0 {
		return u
	}

	u.SourceExpr = scopeValuesPath(u.SourceExpr, prefix)

	guards := make([]symbolic.Guard, len(u.Guards))
	for i, g := range u.Guards {
		guards[i] = scopeGuard(g, prefix)
	}

	u.Guards = guards

	return u
}

func scopeGuard(g symbolic.Guard, prefix []string) symbolic.Guard {
	switch g.Kind {
	case symbolic.GuardTruthy, symbolic.GuardNot, symbolic.GuardEq:
		g.Path = scopeValuesPath(g.Path, prefix)
	case symbolic.GuardOr:
		paths := make([]string, len(g.Paths))
		for i, p := range g.Paths {
			paths[i] = scopeValuesPath(p, prefix)
		}

		g.Paths = paths
	}

	return g
}

func scopeValuesPath(path string, prefix []string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	if path == "global" || strings.HasPrefix(path, "global.") {
		return path
	}

	return strings.Join(prefix, ".") + "." + path
}
