package oracle_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/helmschema/oracle"
	"go.jacobcolvin.com/helmschema/symbolic"
)

const versionDir = "v1.35.0-standalone-strict"

func writeSchemaFixture(t *testing.T, cacheDir, filename, content string) {
	t.Helper()

	dir := filepath.Join(cacheDir, versionDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644))
}

func TestFilenameForResource(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "service-v1.json", oracle.FilenameForResource(
		symbolic.ResourceRef{APIVersion: "v1", Kind: "Service"}))

	assert.Equal(t, "prometheusrule-monitoring-coreos-com-v1.json", oracle.FilenameForResource(
		symbolic.ResourceRef{APIVersion: "monitoring.coreos.com/v1", Kind: "PrometheusRule"}))

	assert.Equal(t, "deployment-apps-v1.json", oracle.FilenameForResource(
		symbolic.ResourceRef{APIVersion: "apps/v1", Kind: "Deployment"}))
}

func TestDefaultCacheDirResolution(t *testing.T) {
	t.Setenv("HELMSCHEMA_CACHE_DIR", "")
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")

	assert.Equal(t,
		filepath.Join("/tmp/xdg", "helmschema", "kubernetes-json-schema"),
		oracle.DefaultCacheDir())

	t.Setenv("HELMSCHEMA_CACHE_DIR", "/tmp/explicit")
	assert.Equal(t, "/tmp/explicit", oracle.DefaultCacheDir())
}

func TestUpstreamSchemaAt(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()

	writeSchemaFixture(t, cacheDir, "service-v1.json", `{
		"type": "object",
		"properties": {
			"metadata": {"$ref": "objectmeta-meta-v1.json#/definitions/io.k8s.ObjectMeta"},
			"spec": {
				"type": "object",
				"properties": {
					"ports": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {"port": {"type": "integer"}}
						}
					}
				}
			}
		}
	}`)

	writeSchemaFixture(t, cacheDir, "objectmeta-meta-v1.json", `{
		"definitions": {
			"io.k8s.ObjectMeta": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"labels": {
						"type": "object",
						"additionalProperties": {"type": "string"}
					}
				}
			}
		}
	}`)

	u := oracle.NewUpstream("v1.35.0", oracle.WithCacheDir(cacheDir))

	ref := symbolic.ResourceRef{APIVersion: "v1", Kind: "Service"}

	got, ok := u.SchemaAt(ref, symbolic.YamlPath{"metadata", "name"})
	require.True(t, ok)
	assert.Equal(t, "string", got.Type)

	got, ok = u.SchemaAt(ref, symbolic.YamlPath{"spec", "ports[*]", "port"})
	require.True(t, ok)
	assert.Equal(t, "integer", got.Type)

	got, ok = u.SchemaAt(ref, symbolic.YamlPath{"metadata", "labels"})
	require.True(t, ok)
	assert.Equal(t, "object", got.Type)
	require.NotNil(t, got.AdditionalProperties)
	assert.Equal(t, "string", got.AdditionalProperties.Type)

	_, ok = u.SchemaAt(ref, symbolic.YamlPath{"spec", "bogus"})
	assert.False(t, ok)

	// Unknown resources miss without network access.
	_, ok = u.SchemaAt(symbolic.ResourceRef{APIVersion: "v1", Kind: "Missing"}, symbolic.YamlPath{"metadata"})
	assert.False(t, ok)
}

func TestUpstreamAPIVersionCandidates(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()

	writeSchemaFixture(t, cacheDir, "ingress-networking-k8s-io-v1.json", `{
		"type": "object",
		"properties": {
			"spec": {
				"type": "object",
				"properties": {"ingressClassName": {"type": "string"}}
			}
		}
	}`)

	u := oracle.NewUpstream("v1.35.0", oracle.WithCacheDir(cacheDir))

	ref := symbolic.ResourceRef{
		Kind: "Ingress",
		APIVersionCandidates: []string{
			"extensions/v1beta1",
			"networking.k8s.io/v1",
		},
	}

	got, ok := u.SchemaAt(ref, symbolic.YamlPath{"spec", "ingressClassName"})
	require.True(t, ok)
	assert.Equal(t, "string", got.Type)
}

func TestUpstreamDownload(t *testing.T) {
	t.Parallel()

	served := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+versionDir+"/configmap-v1.json" {
			http.NotFound(w, r)

			return
		}

		served++

		_, _ = w.Write([]byte(`{"type": "object", "properties": {"data": {
			"type": "object", "additionalProperties": {"type": "string"}}}}`))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	ref := symbolic.ResourceRef{APIVersion: "v1", Kind: "ConfigMap"}

	u := oracle.NewUpstream("v1.35.0",
		oracle.WithCacheDir(cacheDir),
		oracle.WithBaseURL(srv.URL),
		oracle.WithNetwork(true),
	)

	_, ok := u.SchemaAt(ref, symbolic.YamlPath{"data"})
	require.True(t, ok)
	assert.Equal(t, 1, served)

	// The download landed in the cache; a second store works offline.
	offline := oracle.NewUpstream("v1.35.0", oracle.WithCacheDir(cacheDir))

	_, ok = offline.SchemaAt(ref, symbolic.YamlPath{"data"})
	assert.True(t, ok)
	assert.Equal(t, 1, served)
}

func TestUpstreamNoNetworkMisses(t *testing.T) {
	t.Parallel()

	u := oracle.NewUpstream("v1.35.0", oracle.WithCacheDir(t.TempDir()))

	_, ok := u.ResourceSchema(symbolic.ResourceRef{APIVersion: "v1", Kind: "Pod"})
	assert.False(t, ok)
}
