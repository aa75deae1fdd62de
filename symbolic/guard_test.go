package symbolic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.jacobcolvin.com/helmschema/symbolic"
)

func TestExtractValuesPaths(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		text string
		want []string
	}{
		"single path": {
			text: ".Values.name",
			want: []string{"name"},
		},
		"nested path": {
			text: "toYaml .Values.ingress.tls | nindent 4",
			want: []string{"ingress.tls"},
		},
		"several paths keep appearance order": {
			text: "or .Values.b .Values.a",
			want: []string{"b", "a"},
		},
		"duplicates collapse": {
			text: "and .Values.x (not .Values.x)",
			want: []string{"x"},
		},
		"no values reference": {
			text: `include "chart.fullname" .`,
			want: nil,
		},
		"release is not values": {
			text: ".Release.Name",
			want: nil,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, symbolic.ExtractValuesPaths(tc.text))
		})
	}
}

func TestParseCondition(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		cond string
		want []symbolic.Guard
	}{
		"truthy": {
			cond: ".Values.networkPolicy.enabled",
			want: []symbolic.Guard{symbolic.Truthy("networkPolicy.enabled")},
		},
		"and yields one truthy per path": {
			cond: "and .Values.metrics.enabled .Values.metrics.rule.enabled",
			want: []symbolic.Guard{
				symbolic.Truthy("metrics.enabled"),
				symbolic.Truthy("metrics.rule.enabled"),
			},
		},
		"eq with string literal": {
			cond: `eq .Values.architecture "replication"`,
			want: []symbolic.Guard{symbolic.Eq("architecture", "replication")},
		},
		"or over values refs": {
			cond: "or .Values.nsMatch .Values.podMatch",
			want: []symbolic.Guard{symbolic.Or("nsMatch", "podMatch")},
		},
		"not": {
			cond: "not .Values.allowExternal",
			want: []symbolic.Guard{symbolic.Not("allowExternal")},
		},
		"empty acts like not": {
			cond: "empty .Values.existingSecret",
			want: []symbolic.Guard{symbolic.Not("existingSecret")},
		},
		"no values paths": {
			cond: `eq .Release.Namespace "default"`,
			want: []symbolic.Guard{},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, symbolic.ParseCondition(tc.cond))
		})
	}
}

func TestMirrorCondition(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]symbolic.Guard{symbolic.Not("x")},
		symbolic.MirrorCondition([]symbolic.Guard{symbolic.Truthy("x")}))

	assert.Equal(t,
		[]symbolic.Guard{symbolic.Truthy("x")},
		symbolic.MirrorCondition([]symbolic.Guard{symbolic.Not("x")}))

	// Multi-path and equality conditions have no usable mirror.
	assert.Nil(t, symbolic.MirrorCondition([]symbolic.Guard{
		symbolic.Truthy("a"), symbolic.Truthy("b"),
	}))
	assert.Nil(t, symbolic.MirrorCondition([]symbolic.Guard{symbolic.Eq("t", "a")}))
}
