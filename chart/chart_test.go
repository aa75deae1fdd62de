package chart_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/helmschema/chart"
	"go.jacobcolvin.com/helmschema/fused"
	"go.jacobcolvin.com/helmschema/stringtest"
	"go.jacobcolvin.com/helmschema/symbolic"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeChart lays out a minimal chart and returns its directory.
func writeChart(t *testing.T, dir, chartYaml string, files map[string]string) string {
	t.Helper()

	writeFile(t, filepath.Join(dir, "Chart.yaml"), chartYaml)

	for name, content := range files {
		writeFile(t, filepath.Join(dir, name), content)
	}

	return dir
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := writeChart(t, t.TempDir(),
		stringtest.JoinLF(
			"apiVersion: v2",
			"name: parent",
			"dependencies:",
			"  - name: redis",
			"    alias: cache",
			"",
		),
		map[string]string{
			"values.yaml": "replicaCount: 1\n",
		})

	writeChart(t, filepath.Join(root, "charts", "redis"),
		stringtest.JoinLF(
			"apiVersion: v2",
			"name: redis",
			"",
		),
		map[string]string{
			"values.yaml": "port: 6379\n",
		})

	writeChart(t, filepath.Join(root, "charts", "common"),
		stringtest.JoinLF(
			"apiVersion: v2",
			"name: common",
			"type: library",
			"",
		),
		nil)

	d, err := chart.Discover(root)
	require.NoError(t, err)

	t.Cleanup(d.Cleanup)

	require.Len(t, d.Charts, 3)

	assert.Empty(t, d.Charts[0].ValuesPrefix)
	assert.False(t, d.Charts[0].IsLibrary)

	byPrefix := map[string]*chart.Chart{}
	for _, c := range d.Charts[1:] {
		require.Len(t, c.ValuesPrefix, 1)
		byPrefix[c.ValuesPrefix[0]] = c
	}

	// The dependency alias, not the chart name, keys the sub-chart.
	require.Contains(t, byPrefix, "cache")
	require.Contains(t, byPrefix, "common")
	assert.True(t, byPrefix["common"].IsLibrary)
}

func TestDiscoverArchivedSubchart(t *testing.T) {
	t.Parallel()

	root := writeChart(t, t.TempDir(),
		stringtest.JoinLF(
			"apiVersion: v2",
			"name: parent",
			"",
		),
		nil)

	archive := buildChartArchive(t, map[string]string{
		"child/Chart.yaml":  "apiVersion: v2\nname: child\n",
		"child/values.yaml": "enabled: true\n",
	})

	require.NoError(t, os.MkdirAll(filepath.Join(root, "charts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "charts", "child-1.0.0.tgz"), archive, 0o644))

	d, err := chart.Discover(root)
	require.NoError(t, err)

	t.Cleanup(d.Cleanup)

	require.Len(t, d.Charts, 2)
	assert.Equal(t, []string{"child"}, d.Charts[1].ValuesPrefix)

	values, err := os.ReadFile(filepath.Join(d.Charts[1].Dir, "values.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "enabled: true\n", string(values))
}

func buildChartArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for path, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: path,
			Mode: 0o644,
			Size: int64(len(content)),
		}))

		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	return buf.Bytes()
}

func TestComposedValues(t *testing.T) {
	t.Parallel()

	root := writeChart(t, t.TempDir(),
		stringtest.JoinLF(
			"apiVersion: v2",
			"name: parent",
			"dependencies:",
			"  - name: child",
			"    alias: kid",
			"",
		),
		map[string]string{
			"values.yaml": stringtest.JoinLF(
				"replicaCount: 2",
				"global:",
				"  registry: root.example.com",
				"",
			),
		})

	writeChart(t, filepath.Join(root, "charts", "child"),
		"apiVersion: v2\nname: child\n",
		map[string]string{
			"values.yaml": stringtest.JoinLF(
				"port: 8080",
				"global:",
				"  registry: child.example.com",
				"  pullPolicy: Always",
				"",
			),
		})

	d, err := chart.Discover(root)
	require.NoError(t, err)

	t.Cleanup(d.Cleanup)

	composed, err := chart.ComposedValues(d.Charts, true)
	require.NoError(t, err)

	var doc map[string]any

	require.NoError(t, yaml.Unmarshal(composed, &doc))

	kid, ok := doc["kid"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 8080, kid["port"])

	global, ok := doc["global"].(map[string]any)
	require.True(t, ok)

	// The root's global wins; new sub-chart keys merge in.
	assert.Equal(t, "root.example.com", global["registry"])
	assert.Equal(t, "Always", global["pullPolicy"])

	// Without composition the raw root file comes back untouched.
	raw, err := chart.ComposedValues(d.Charts, false)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "replicaCount: 2")
}

func TestBuildDefineIndexAndManifests(t *testing.T) {
	t.Parallel()

	root := writeChart(t, t.TempDir(),
		"apiVersion: v2\nname: parent\n",
		map[string]string{
			"templates/_helpers.tpl": stringtest.JoinLF(
				`{{- define "parent.name" -}}`,
				"{{ .Chart.Name }}",
				"{{- end }}",
				"",
			),
			"templates/service.yaml":     "apiVersion: v1\nkind: Service\n",
			"templates/tests/smoke.yaml": "apiVersion: v1\nkind: Pod\n",
			"templates/NOTES.txt":        "notes\n",
			"files/config.yaml":          "port: 1\n",
			"files/scripts/extra.tpl":    "a: 1\n",
		})

	d, err := chart.Discover(root)
	require.NoError(t, err)

	t.Cleanup(d.Cleanup)

	idx, err := chart.BuildDefineIndex(d.Charts, fused.ScanParser{}, false)
	require.NoError(t, err)

	_, ok := idx.Get("parent.name")
	assert.True(t, ok)

	_, ok = idx.GetFile("files/config.yaml")
	assert.True(t, ok)

	_, ok = idx.GetFile("files/scripts/extra.tpl")
	assert.True(t, ok)

	manifests, err := chart.ManifestTemplates(d.Charts[0], false)
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	assert.Equal(t, "service.yaml", filepath.Base(manifests[0]))

	withTests, err := chart.ManifestTemplates(d.Charts[0], true)
	require.NoError(t, err)
	assert.Len(t, withTests, 2)
}

func TestScopeUse(t *testing.T) {
	t.Parallel()

	use := symbolic.ValueUse{
		SourceExpr: "foo.bar",
		Path:       symbolic.YamlPath{"spec"},
		Kind:       symbolic.KindScalar,
		Guards: []symbolic.Guard{
			symbolic.Truthy("foo.enabled"),
			symbolic.Or("a", "global.registry"),
		},
	}

	scoped := chart.ScopeUse(use, []string{"kid"})

	assert.Equal(t, "kid.foo.bar", scoped.SourceExpr)
	assert.Equal(t, symbolic.Truthy("kid.foo.enabled"), scoped.Guards[0])

	// Paths under global stay at the root.
	assert.Equal(t, symbolic.Or("kid.a", "global.registry"), scoped.Guards[1])

	// The empty prefix is the identity.
	assert.Equal(t, use, chart.ScopeUse(use, nil))
}
