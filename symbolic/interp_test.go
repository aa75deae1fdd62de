package symbolic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/helmschema/fused"
	"go.jacobcolvin.com/helmschema/stringtest"
	"go.jacobcolvin.com/helmschema/symbolic"
)

func interpret(t *testing.T, src string, helpers ...string) []symbolic.ValueUse {
	t.Helper()

	idx := fused.NewDefineIndex()
	for _, helper := range helpers {
		require.NoError(t, idx.AddSource(fused.ScanParser{}, helper))
	}

	doc, err := fused.ScanParser{}.Parse(src)
	require.NoError(t, err)

	return symbolic.NewInterpreter(idx).Interpret(src, doc)
}

func TestInterpretGuardOnly(t *testing.T) {
	t.Parallel()

	src := stringtest.JoinLF(
		"{{- if .Values.x }}",
		"foo: bar",
		"{{- end }}",
		"",
	)

	uses := interpret(t, src)

	assert.Equal(t, []symbolic.ValueUse{
		{SourceExpr: "x", Path: symbolic.YamlPath{}, Kind: symbolic.KindScalar, Guards: []symbolic.Guard{}},
	}, normalize(uses))
}

func TestInterpretScalarInMapping(t *testing.T) {
	t.Parallel()

	src := stringtest.JoinLF(
		"apiVersion: v1",
		"kind: Service",
		"metadata:",
		"  name: {{ .Values.name }}",
		"",
	)

	uses := interpret(t, src)

	require.Len(t, uses, 1)
	assert.Equal(t, "name", uses[0].SourceExpr)
	assert.Equal(t, symbolic.YamlPath{"metadata", "name"}, uses[0].Path)
	assert.Equal(t, symbolic.KindScalar, uses[0].Kind)
	require.NotNil(t, uses[0].Resource)
	assert.Equal(t, "v1", uses[0].Resource.APIVersion)
	assert.Equal(t, "Service", uses[0].Resource.Kind)
}

func TestInterpretRangeSequence(t *testing.T) {
	t.Parallel()

	src := stringtest.JoinLF(
		"args:",
		"{{- range .Values.extraArgs }}",
		"- {{ . }}",
		"{{- end }}",
		"",
	)

	uses := interpret(t, src)

	assert.Equal(t, []symbolic.ValueUse{
		{
			SourceExpr: "extraArgs",
			Path:       symbolic.YamlPath{"args"},
			Kind:       symbolic.KindScalar,
			Guards:     []symbolic.Guard{},
		},
		{
			SourceExpr: "extraArgs.*",
			Path:       symbolic.YamlPath{"args[*]"},
			Kind:       symbolic.KindScalar,
			Guards:     []symbolic.Guard{symbolic.Truthy("extraArgs")},
		},
	}, normalize(uses))
}

func TestInterpretSequenceItemPath(t *testing.T) {
	t.Parallel()

	src := stringtest.JoinLF(
		"args:",
		"  - {{ .Values.first }}",
		"  - two",
		"",
	)

	uses := interpret(t, src)

	require.Len(t, uses, 1)
	assert.Equal(t, symbolic.YamlPath{"args[*]"}, uses[0].Path)
}

func TestInterpretFragment(t *testing.T) {
	t.Parallel()

	src := stringtest.JoinLF(
		"metadata:",
		"  annotations:",
		"    {{- toYaml .Values.annot | nindent 4 }}",
		"",
	)

	uses := interpret(t, src)

	assert.Equal(t, []symbolic.ValueUse{
		{
			SourceExpr: "annot",
			Path:       symbolic.YamlPath{"metadata", "annotations"},
			Kind:       symbolic.KindFragment,
			Guards:     []symbolic.Guard{},
		},
	}, normalize(uses))
}

func TestInterpretElseIfEqChain(t *testing.T) {
	t.Parallel()

	src := stringtest.JoinLF(
		`{{- if eq .Values.t "a" }}`,
		"mode: alpha",
		`{{- else if eq .Values.t "b" }}`,
		"mode: beta",
		"{{- end }}",
		"",
	)

	uses := interpret(t, src)

	assert.Equal(t, []symbolic.ValueUse{
		{SourceExpr: "t", Path: symbolic.YamlPath{}, Kind: symbolic.KindScalar, Guards: []symbolic.Guard{}},
	}, normalize(uses))
}

func TestInterpretGuardRoundTrip(t *testing.T) {
	t.Parallel()

	src := stringtest.JoinLF(
		"{{- if .Values.a }}",
		"x: {{ .Values.b }}",
		"{{- else }}",
		"y: {{ .Values.c }}",
		"{{- end }}",
		"",
	)

	uses := interpret(t, src)

	assert.Equal(t, []symbolic.ValueUse{
		{SourceExpr: "a", Path: symbolic.YamlPath{}, Kind: symbolic.KindScalar, Guards: []symbolic.Guard{}},
		{
			SourceExpr: "b",
			Path:       symbolic.YamlPath{"x"},
			Kind:       symbolic.KindScalar,
			Guards:     []symbolic.Guard{symbolic.Truthy("a")},
		},
		{
			SourceExpr: "c",
			Path:       symbolic.YamlPath{"y"},
			Kind:       symbolic.KindScalar,
			Guards:     []symbolic.Guard{symbolic.Not("a")},
		},
	}, normalize(uses))
}

func TestInterpretNestedGuards(t *testing.T) {
	t.Parallel()

	src := stringtest.JoinLF(
		"{{- if not .Values.allowExternal }}",
		"{{- if or .Values.nsMatch .Values.podMatch }}",
		"{{- if .Values.nsMatch }}",
		"sel: {{ .Values.nsMatch }}",
		"{{- end }}",
		"{{- end }}",
		"{{- end }}",
		"",
	)

	uses := interpret(t, src)

	assert.Equal(t, []symbolic.ValueUse{
		{SourceExpr: "allowExternal", Path: symbolic.YamlPath{}, Kind: symbolic.KindScalar, Guards: []symbolic.Guard{}},
		{
			SourceExpr: "nsMatch",
			Path:       symbolic.YamlPath{},
			Kind:       symbolic.KindScalar,
			Guards:     []symbolic.Guard{symbolic.Not("allowExternal")},
		},
		{
			SourceExpr: "nsMatch",
			Path:       symbolic.YamlPath{},
			Kind:       symbolic.KindScalar,
			Guards: []symbolic.Guard{
				symbolic.Not("allowExternal"),
				symbolic.Or("nsMatch", "podMatch"),
			},
		},
		{
			SourceExpr: "nsMatch",
			Path:       symbolic.YamlPath{"sel"},
			Kind:       symbolic.KindScalar,
			Guards: []symbolic.Guard{
				symbolic.Not("allowExternal"),
				symbolic.Or("nsMatch", "podMatch"),
				symbolic.Truthy("nsMatch"),
			},
		},
		{
			SourceExpr: "podMatch",
			Path:       symbolic.YamlPath{},
			Kind:       symbolic.KindScalar,
			Guards:     []symbolic.Guard{symbolic.Not("allowExternal")},
		},
	}, normalize(uses))
}

func TestInterpretIncludeInlining(t *testing.T) {
	t.Parallel()

	helper := stringtest.JoinLF(
		`{{- define "helper.a" }}`,
		"{{ .Values.A }}",
		"{{- end }}",
		"",
	)

	src := stringtest.JoinLF(
		`foo: {{ include "helper.a" . }}`,
		"",
	)

	uses := interpret(t, src, helper)

	assert.Equal(t, []symbolic.ValueUse{
		{SourceExpr: "A", Path: symbolic.YamlPath{"foo"}, Kind: symbolic.KindScalar, Guards: []symbolic.Guard{}},
	}, normalize(uses))
}

func TestInterpretDynamicIncludeDegrades(t *testing.T) {
	t.Parallel()

	src := stringtest.JoinLF(
		"foo: {{ include (printf \"%s.helper\" .Chart.Name) .Values.ctx }}",
		"",
	)

	uses := interpret(t, src)

	assert.Equal(t, []symbolic.ValueUse{
		{SourceExpr: "ctx", Path: symbolic.YamlPath{"foo"}, Kind: symbolic.KindScalar, Guards: []symbolic.Guard{}},
	}, normalize(uses))
}

func TestInterpretRecursiveIncludeTerminates(t *testing.T) {
	t.Parallel()

	helper := stringtest.JoinLF(
		`{{- define "helper.loop" }}`,
		`{{ include "helper.loop" .Values.seed }}`,
		"{{- end }}",
		"",
	)

	src := stringtest.JoinLF(
		`foo: {{ include "helper.loop" . }}`,
		"",
	)

	uses := interpret(t, src, helper)

	// The depth cap stops the self-recursive helper; the seed read is still
	// recorded.
	require.NotEmpty(t, uses)
	assert.Equal(t, "seed", uses[0].SourceExpr)
}

func TestInterpretAssignmentTracking(t *testing.T) {
	t.Parallel()

	src := stringtest.JoinLF(
		"{{- $name := .Values.nameOverride }}",
		"name: {{ $name }}",
		"",
	)

	uses := interpret(t, src)

	assert.Equal(t, []symbolic.ValueUse{
		{SourceExpr: "nameOverride", Path: symbolic.YamlPath{}, Kind: symbolic.KindScalar, Guards: []symbolic.Guard{}},
		{SourceExpr: "nameOverride", Path: symbolic.YamlPath{"name"}, Kind: symbolic.KindScalar, Guards: []symbolic.Guard{}},
	}, normalize(uses))
}

func TestInterpretFilesGetInlining(t *testing.T) {
	t.Parallel()

	idx := fused.NewDefineIndex()
	idx.AddFileSource("files/app.yaml", "port: {{ .Values.filePort }}\n")

	src := stringtest.JoinLF(
		"config:",
		`  {{- tpl (.Files.Get "files/app.yaml") . | nindent 2 }}`,
		"",
	)

	doc, err := fused.ScanParser{}.Parse(src)
	require.NoError(t, err)

	uses := symbolic.NewInterpreter(idx).Interpret(src, doc)

	assert.Equal(t, []symbolic.ValueUse{
		{
			SourceExpr: "filePort",
			Path:       symbolic.YamlPath{"config", "port"},
			Kind:       symbolic.KindScalar,
			Guards:     []symbolic.Guard{},
		},
	}, normalize(uses))
}

func TestInterpretAPIVersionCandidates(t *testing.T) {
	t.Parallel()

	helper := stringtest.JoinLF(
		`{{- define "chart.ingress.apiVersion" }}`,
		"{{- if .Values.legacy }}",
		"networking.k8s.io/v1beta1",
		"{{- else }}",
		"networking.k8s.io/v1",
		"{{- end }}",
		"{{- end }}",
		"",
	)

	src := stringtest.JoinLF(
		`apiVersion: {{ include "chart.ingress.apiVersion" . }}`,
		"kind: Ingress",
		"spec:",
		"  ingressClassName: {{ .Values.ingress.className }}",
		"",
	)

	uses := interpret(t, src, helper)

	var classUse *symbolic.ValueUse

	for i := range uses {
		if uses[i].SourceExpr == "ingress.className" {
			classUse = &uses[i]
		}
	}

	require.NotNil(t, classUse)
	require.NotNil(t, classUse.Resource)
	assert.Equal(t, "Ingress", classUse.Resource.Kind)
	assert.Empty(t, classUse.Resource.APIVersion)
	assert.Equal(t,
		[]string{"networking.k8s.io/v1", "networking.k8s.io/v1beta1"},
		classUse.Resource.APIVersionCandidates)
}

func TestInterpretWithHeader(t *testing.T) {
	t.Parallel()

	src := stringtest.JoinLF(
		"{{- with .Values.podAnnotations }}",
		"annotations:",
		"  {{- toYaml . | nindent 2 }}",
		"{{- end }}",
		"",
	)

	uses := interpret(t, src)

	assert.Equal(t, []symbolic.ValueUse{
		{SourceExpr: "podAnnotations", Path: symbolic.YamlPath{}, Kind: symbolic.KindScalar, Guards: []symbolic.Guard{}},
		{
			SourceExpr: "podAnnotations",
			Path:       symbolic.YamlPath{"annotations"},
			Kind:       symbolic.KindFragment,
			Guards:     []symbolic.Guard{symbolic.Truthy("podAnnotations")},
		},
	}, normalize(uses))
}

func TestInterpretDeterminism(t *testing.T) {
	t.Parallel()

	src := stringtest.JoinLF(
		"{{- if .Values.b }}",
		"x: {{ .Values.a }}",
		"{{- end }}",
		"y: {{ .Values.a }}",
		"",
	)

	first := interpret(t, src)
	second := interpret(t, src)

	assert.Equal(t, first, second)
}

// normalize strips resource references so expectations stay focused; tests
// that care about resources assert on them directly.
func normalize(uses []symbolic.ValueUse) []symbolic.ValueUse {
	out := make([]symbolic.ValueUse, len(uses))

	for i, u := range uses {
		u.Resource = nil

		if u.Path == nil {
			u.Path = symbolic.YamlPath{}
		}

		if u.Guards == nil {
			u.Guards = []symbolic.Guard{}
		}

		out[i] = u
	}

	return out
}
