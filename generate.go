package helmschema

import (
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/helmschema/chart"
	"go.jacobcolvin.com/helmschema/fused"
	"go.jacobcolvin.com/helmschema/oracle"
	"go.jacobcolvin.com/helmschema/symbolic"
	"go.jacobcolvin.com/helmschema/synth"
)

// Options configures one schema generation run.
type Options struct {
	// IncludeTests also analyzes templates under templates/tests.
	IncludeTests bool
	// DisableSubchartValues skips sub-chart values.yaml composition.
	DisableSubchartValues bool
	// Oracle supplies resource shapes; nil disables oracle lookups.
	Oracle oracle.Oracle
	// Parser overrides the fused parser backend; nil selects the default.
	Parser fused.Parser

	// Title, Description, and ID are applied to the schema root.
	Title       string
	Description string
	ID          string
}

// Generate statically analyzes the chart at chartPath (a directory or a
// chart archive) and returns the JSON Schema of its override document.
func Generate(chartPath string, opts Options) (*jsonschema.Schema, error) {
	parser := opts.Parser
	if parser == nil {
		parser = fused.ScanParser{}
	}

	discovery, err := chart.Discover(chartPath)
	if err != nil {
		return nil, fmt.Errorf("discover charts: %w", err)
	}
	defer discovery.Cleanup()

	defines, err := chart.BuildDefineIndex(discovery.Charts, parser, opts.IncludeTests)
	if err != nil {
		return nil, fmt.Errorf("build define index: %w", err)
	}

	defaults, err := chart.ComposedValues(discovery.Charts, !opts.DisableSubchartValues)
	if err != nil {
		return nil, fmt.Errorf("compose values: %w", err)
	}

	uses, err := CollectUses(discovery.Charts, defines, parser, opts.IncludeTests)
	if err != nil {
		return nil, err
	}

	gen := synth.NewGenerator(
		synth.WithOracle(opts.Oracle),
		synth.WithTitle(opts.Title),
		synth.WithDescription(opts.Description),
		synth.WithID(opts.ID),
	)

	return gen.Generate(uses, defaults)
}

// CollectUses parses and walks every manifest template of every non-library
// chart, re-roots sub-chart uses under their alias prefix, and returns the
// combined list in canonical order.
func CollectUses(charts []*chart.Chart, defines *fused.DefineIndex, parser fused.Parser, includeTests bool) ([]symbolic.ValueUse, error) {
	interp := symbolic.NewInterpreter(defines, symbolic.WithParser(parser))

	var out []symbolic.ValueUse

	for _, c := range charts {
		if c.IsLibrary {
			continue
		}

		manifests, err := chart.ManifestTemplates(c, includeTests)
		if err != nil {
			return nil, err
		}

		for _, path := range manifests {
			src, err := os.ReadFile(path) //nolint:gosec // Paths come from chart discovery.
			if err != nil {
				return nil, fmt.Errorf("read template %s: %w", path, err)
			}

			doc, err := parser.Parse(string(src))
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", path, err)
			}

			for _, u := range interp.Interpret(string(src), doc) {
				out = append(out, chart.ScopeUse(u, c.ValuesPrefix))
			}
		}
	}

	return symbolic.SortUses(out), nil
}
