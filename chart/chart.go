package chart

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Sentinel errors returned during chart discovery.
var (
	ErrNoChart         = errors.New("no chart found")
	ErrSubchartNoName  = errors.New("sub-chart has no name")
	ErrInvalidArchive  = errors.New("invalid chart archive")
	ErrUnsupportedPath = errors.New("unsupported chart path")
)

// Chart is one discovered chart: the root chart or a vendored dependency.
type Chart struct {
	// Dir is the chart's directory on disk.
	Dir string
	// ValuesPrefix is the override-document prefix the chart's values live
	// under: empty for the root, the dependency alias chain for
	// sub-charts.
	ValuesPrefix []string
	// IsLibrary marks library charts, which contribute helpers but render
	// no manifests.
	IsLibrary bool
}

// Discovery is the result of walking a chart tree. Archived sub-charts are
// extracted into temporary directories owned by the Discovery; call
// [Discovery.Cleanup] when done.
type Discovery struct {
	Charts []*Chart

	tempDirs []string
}

// Cleanup removes the temporary directories of extracted archives.
func (d *Discovery) Cleanup() {
	for _, dir := range d.tempDirs {
		_ = os.RemoveAll(dir)
	}

	d.tempDirs = nil
}

type chartYaml struct {
	Name         string            `yaml:"name"`
	Type         string            `yaml:"type"`
	Dependencies []chartDependency `yaml:"dependencies"`
}

type chartDependency struct {
	Name  string `yaml:"name"`
	Alias string `yaml:"alias"`
}

// Discover walks a chart at path — a directory or a .tgz/.tar.gz archive —
// and returns the root chart followed by every vendored sub-chart, each
// carrying its override-document prefix. URL and repo/chart forms are not
// supported.
func Discover(path string) (*Discovery, error) {
	d := &Discovery{}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat chart path: %w", err)
	}

	dir := path

	if !info.IsDir() {
		if !isChartArchive(path) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedPath, path)
		}

		dir, err = d.extractArchive(path)
		if err != nil {
			d.Cleanup()

			return nil, err
		}
	}

	if err := d.discover(dir, nil); err != nil {
		d.Cleanup()

		return nil, err
	}

	return d, nil
}

func (d *Discovery) discover(dir string, prefix []string) error {
	meta, err := readChartYaml(dir)
	if err != nil {
		return err
	}

	d.Charts = append(d.Charts, &Chart{
		Dir:          dir,
		ValuesPrefix: append([]string(nil), prefix...),
		IsLibrary:    strings.EqualFold(meta.Type, "library"),
	})

	aliasByName := make(map[string]string, len(meta.Dependencies))
	for _, dep := range meta.Dependencies {
		key := dep.Alias
		if key == "" {
			key = dep.Name
		}

		aliasByName[dep.Name] = key
	}

	vendorDir := filepath.Join(dir, "charts")

	entries, err := os.ReadDir(vendorDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("read charts dir: %w", err)
	}

	for _, ent := range entries {
		subDir, ok, err := d.resolveSubchart(vendorDir, ent)
		if err != nil {
			return err
		}

		if !ok {
			continue
		}

		subMeta, err := readChartYaml(subDir)
		if err != nil {
			return err
		}

		name := subMeta.Name
		if name == "" {
			name = filepath.Base(subDir)
		}

		if name == "" || name == "." {
			return fmt.Errorf("%w: %s", ErrSubchartNoName, subDir)
		}

		key, ok := aliasByName[name]
		if !ok {
			key = name
		}

		if err := d.discover(subDir, append(prefix, key)); err != nil {
			return err
		}
	}

	return nil
}

func (d *Discovery) resolveSubchart(vendorDir string, ent os.DirEntry) (string, bool, error) {
	path := filepath.Join(vendorDir, ent.Name())

	if ent.IsDir() {
		if !hasChartYaml(path) {
			return "", false, nil
		}

		return path, true, nil
	}

	if !isChartArchive(path) {
		return "", false, nil
	}

	dir, err := d.extractArchive(path)
	if err != nil {
		return "", false, err
	}

	return dir, true, nil
}

// extractArchive unpacks a gzipped chart tarball into a temporary directory
// and locates the chart root inside it.
func (d *Discovery) extractArchive(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // Archive path comes from chart discovery.
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidArchive, path, err)
	}

	tmp, err := os.MkdirTemp("", "helmschema-chart-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	d.tempDirs = append(d.tempDirs, tmp)

	tr := tar.NewReader(gz)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrInvalidArchive, path, err)
		}

		target, err := safeJoin(tmp, hdr.Name)
		if err != nil {
			return "", err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", fmt.Errorf("extract dir: %w", err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", fmt.Errorf("extract dir: %w", err)
			}

			out, err := os.Create(target) //nolint:gosec // Path is validated by safeJoin.
			if err != nil {
				return "", fmt.Errorf("extract file: %w", err)
			}

			_, err = io.Copy(out, tr) //nolint:gosec // Chart archives are trusted local inputs.
			if closeErr := out.Close(); err == nil {
				err = closeErr
			}

			if err != nil {
				return "", fmt.Errorf("extract file: %w", err)
			}
		}
	}

	chartDir, err := findChartDir(tmp)
	if err != nil {
		return "", err
	}

	if chartDir == "" {
		return "", fmt.Errorf("%w: no Chart.yaml in %s", ErrNoChart, path)
	}

	return chartDir, nil
}

func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.Clean("/"+name))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) && target != root {
		return "", fmt.Errorf("%w: entry escapes archive: %s", ErrInvalidArchive, name)
	}

	return target, nil
}

func findChartDir(root string) (string, error) {
	if hasChartYaml(root) {
		return root, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("read extracted archive: %w", err)
	}

	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}

		dir := filepath.Join(root, ent.Name())
		if hasChartYaml(dir) {
			return dir, nil
		}
	}

	return "", nil
}

func hasChartYaml(dir string) bool {
	for _, name := range []string{"Chart.yaml", "Chart.template.yaml"} {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
			return true
		}
	}

	return false
}

func isChartArchive(path string) bool {
	lower := strings.ToLower(path)

	return strings.HasSuffix(lower, ".tgz") || strings.HasSuffix(lower, ".tar.gz")
}

// readChartYaml reads Chart.yaml, falling back to Chart.template.yaml for
// charts that template their own metadata.
func readChartYaml(dir string) (*chartYaml, error) {
	var data []byte

	var err error

	for _, name := range []string{"Chart.yaml", "Chart.template.yaml"} {
		data, err = os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // Chart dir comes from discovery.
		if err == nil {
			break
		}
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoChart, dir)
	}

	var meta chartYaml

	if err := yaml.Unmarshal(data, &meta); err != nil {
		// Chart.template.yaml may itself contain template actions; fall
		// back to an unnamed chart rather than failing discovery.
		return &chartYaml{}, nil
	}

	return &meta, nil
}
