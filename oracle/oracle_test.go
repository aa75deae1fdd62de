package oracle_test

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/helmschema/oracle"
	"go.jacobcolvin.com/helmschema/symbolic"
)

type stubOracle struct {
	byPath map[string]*jsonschema.Schema
	full   *jsonschema.Schema
}

func (s stubOracle) ResourceSchema(symbolic.ResourceRef) (*jsonschema.Schema, bool) {
	return s.full, s.full != nil
}

func (s stubOracle) SchemaAt(_ symbolic.ResourceRef, path symbolic.YamlPath) (*jsonschema.Schema, bool) {
	schema, ok := s.byPath[path.String()]

	return schema, ok
}

func TestChainFirstHit(t *testing.T) {
	t.Parallel()

	first := stubOracle{byPath: map[string]*jsonschema.Schema{
		"spec.replicas": {Type: "integer"},
	}}
	second := stubOracle{byPath: map[string]*jsonschema.Schema{
		"spec.replicas": {Type: "string"},
		"spec.suspend":  {Type: "boolean"},
	}}

	chain := oracle.NewChain(first, second)

	ref := symbolic.ResourceRef{APIVersion: "apps/v1", Kind: "Deployment"}

	got, ok := chain.SchemaAt(ref, symbolic.YamlPath{"spec", "replicas"})
	require.True(t, ok)
	assert.Equal(t, "integer", got.Type)

	got, ok = chain.SchemaAt(ref, symbolic.YamlPath{"spec", "suspend"})
	require.True(t, ok)
	assert.Equal(t, "boolean", got.Type)

	_, ok = chain.SchemaAt(ref, symbolic.YamlPath{"spec", "unknown"})
	assert.False(t, ok)
}

func TestChainWarnsOnceOnResourceMiss(t *testing.T) {
	t.Parallel()

	var warnings []oracle.Warning

	chain := oracle.NewChain().WithWarnings(func(w oracle.Warning) {
		warnings = append(warnings, w)
	})

	ref := symbolic.ResourceRef{APIVersion: "batch/v2alpha1", Kind: "CronJob"}

	_, ok := chain.ResourceSchema(ref)
	require.False(t, ok)

	_, _ = chain.ResourceSchema(ref)

	require.Len(t, warnings, 1)
	assert.Equal(t, ref, warnings[0].Resource)
	assert.NotEmpty(t, warnings[0].Hint)
}

func TestChainDoesNotWarnOnHit(t *testing.T) {
	t.Parallel()

	var warnings []oracle.Warning

	chain := oracle.NewChain(stubOracle{full: &jsonschema.Schema{Type: "object"}}).
		WithWarnings(func(w oracle.Warning) {
			warnings = append(warnings, w)
		})

	_, ok := chain.ResourceSchema(symbolic.ResourceRef{APIVersion: "v1", Kind: "Service"})
	require.True(t, ok)
	assert.Empty(t, warnings)
}

func TestHeuristicTable(t *testing.T) {
	t.Parallel()

	h := oracle.Heuristic{}

	ref := symbolic.ResourceRef{}

	tcs := map[string]struct {
		path symbolic.YamlPath
		typ  string
	}{
		"metadata name is string": {
			path: symbolic.YamlPath{"metadata", "name"},
			typ:  "string",
		},
		"replicas is integer": {
			path: symbolic.YamlPath{"spec", "replicas"},
			typ:  "integer",
		},
		"container port is integer": {
			path: symbolic.YamlPath{"spec", "template", "spec", "containers[*]", "ports[*]", "containerPort"},
			typ:  "integer",
		},
		"labels are a string map": {
			path: symbolic.YamlPath{"metadata", "labels"},
			typ:  "object",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, ok := h.SchemaAt(ref, tc.path)
			require.True(t, ok)
			assert.Equal(t, tc.typ, got.Type)
		})
	}

	_, ok := h.SchemaAt(ref, symbolic.YamlPath{"spec", "somethingElse"})
	assert.False(t, ok)

	// pathType carries its enum.
	got, ok := h.SchemaAt(ref, symbolic.YamlPath{"spec", "rules[*]", "http", "paths[*]", "pathType"})
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"Exact", "ImplementationSpecific", "Prefix"}, got.Enum)
}
