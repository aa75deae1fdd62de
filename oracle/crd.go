package oracle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/helmschema/symbolic"
)

// CRDCatalog serves schemas for custom resources from a local catalog
// directory: an index.yaml mapping groups to (apiVersion, kind, filename)
// entries, next to per-resource JSON Schema files.
type CRDCatalog struct {
	rootDir string
	index   map[string]map[string]string // apiVersion -> kind -> filename
}

type crdIndexEntry struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
	Filename   string `yaml:"filename"`
}

// NewCRDCatalog loads the catalog index from rootDir.
func NewCRDCatalog(rootDir string) (*CRDCatalog, error) {
	data, err := os.ReadFile(filepath.Join(rootDir, "index.yaml")) //nolint:gosec // Catalog dir comes from configuration.
	if err != nil {
		return nil, fmt.Errorf("read crd catalog index: %w", err)
	}

	var raw map[string][]crdIndexEntry

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse crd catalog index: %w", err)
	}

	index := make(map[string]map[string]string)

	for _, entries := range raw {
		for _, e := range entries {
			kinds := index[e.APIVersion]
			if kinds == nil {
				kinds = make(map[string]string)
				index[e.APIVersion] = kinds
			}

			kinds[e.Kind] = e.Filename
		}
	}

	return &CRDCatalog{rootDir: rootDir, index: index}, nil
}

// ResourceSchema implements [Oracle], with local references expanded.
func (c *CRDCatalog) ResourceSchema(ref symbolic.ResourceRef) (*jsonschema.Schema, bool) {
	doc, ok := c.loadDoc(ref)
	if !ok {
		return nil, false
	}

	return expandSchema(localDefinitions{root: doc}, "", doc, 0, make(map[string]bool)), true
}

// SchemaAt implements [Oracle].
func (c *CRDCatalog) SchemaAt(ref symbolic.ResourceRef, path symbolic.YamlPath) (*jsonschema.Schema, bool) {
	if len(path) == 0 {
		return nil, false
	}

	doc, ok := c.loadDoc(ref)
	if !ok {
		return nil, false
	}

	resolver := localDefinitions{root: doc}

	_, leaf, found := descendSchema(resolver, "", doc, path)
	if !found {
		return nil, false
	}

	return expandSchema(resolver, "", leaf, 0, make(map[string]bool)), true
}

func (c *CRDCatalog) loadDoc(ref symbolic.ResourceRef) (*jsonschema.Schema, bool) {
	if ref.Kind == "" {
		return nil, false
	}

	var filename string

	for _, apiVersion := range apiVersions(ref) {
		if f, ok := c.index[apiVersion][ref.Kind]; ok {
			filename = f

			break
		}
	}

	if filename == "" {
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(c.rootDir, filename)) //nolint:gosec // Catalog dir comes from configuration.
	if err != nil {
		return nil, false
	}

	var doc jsonschema.Schema

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}

	return &doc, true
}
