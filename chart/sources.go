package chart

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.jacobcolvin.com/helmschema/fused"
)

// BuildDefineIndex feeds every template source of every chart into one
// define index: helpers and manifests under templates/ for their define
// blocks, and everything under files/ as raw file sources keyed by
// chart-relative path.
func BuildDefineIndex(charts []*Chart, parser fused.Parser, includeTests bool) (*fused.DefineIndex, error) {
	idx := fused.NewDefineIndex()

	for _, c := range charts {
		sources, err := listTemplateSources(c.Dir, includeTests)
		if err != nil {
			return nil, err
		}

		for _, path := range sources {
			src, err := os.ReadFile(path) //nolint:gosec // Paths come from chart discovery.
			if err != nil {
				return nil, fmt.Errorf("read template %s: %w", path, err)
			}

			if err := idx.AddSource(parser, string(src)); err != nil {
				return nil, fmt.Errorf("parse template %s: %w", path, err)
			}
		}

		files, err := listChartFiles(c.Dir)
		if err != nil {
			return nil, err
		}

		for _, path := range files {
			src, err := os.ReadFile(path) //nolint:gosec // Paths come from chart discovery.
			if err != nil {
				return nil, fmt.Errorf("read chart file %s: %w", path, err)
			}

			rel, err := filepath.Rel(c.Dir, path)
			if err != nil {
				continue
			}

			idx.AddFileSource(filepath.ToSlash(rel), string(src))
		}
	}

	return idx, nil
}

// ManifestTemplates lists the manifest templates of one chart: files under
// templates/ with a .yaml or .yml extension, excluding names starting with
// an underscore and the templates/tests directory unless tests are
// included.
func ManifestTemplates(c *Chart, includeTests bool) ([]string, error) {
	return walkTemplates(c.Dir, includeTests, func(name string) bool {
		if strings.HasPrefix(strings.ToLower(name), "_") {
			return false
		}

		return hasExtension(name, "yaml", "yml")
	})
}

// listTemplateSources lists everything under templates/ that can contribute
// defines: .tpl helpers plus the manifests themselves.
func listTemplateSources(chartDir string, includeTests bool) ([]string, error) {
	return walkTemplates(chartDir, includeTests, func(name string) bool {
		return hasExtension(name, "tpl", "yaml", "yml")
	})
}

func walkTemplates(chartDir string, includeTests bool, keep func(name string) bool) ([]string, error) {
	templatesDir := filepath.Join(chartDir, "templates")

	if info, err := os.Stat(templatesDir); err != nil || !info.IsDir() {
		return nil, nil
	}

	var out []string

	err := filepath.WalkDir(templatesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if !includeTests && strings.EqualFold(d.Name(), "tests") &&
				filepath.Dir(path) == templatesDir {
				return filepath.SkipDir
			}

			// Vendored sub-charts are walked through their own Chart.
			if d.Name() == "charts" {
				return filepath.SkipDir
			}

			return nil
		}

		if keep(d.Name()) {
			out = append(out, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk templates: %w", err)
	}

	slices.Sort(out)

	return out, nil
}

func listChartFiles(chartDir string) ([]string, error) {
	filesDir := filepath.Join(chartDir, "files")

	if info, err := os.Stat(filesDir); err != nil || !info.IsDir() {
		return nil, nil
	}

	var out []string

	err := filepath.WalkDir(filesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			out = append(out, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk files: %w", err)
	}

	slices.Sort(out)

	return out, nil
}

func hasExtension(name string, exts ...string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")

	for _, want := range exts {
		if ext == want {
			return true
		}
	}

	return false
}
