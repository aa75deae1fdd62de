// Package main provides the CLI entry point for helmschema, a tool that
// generates a JSON Schema for a Helm chart's values overrides by static
// analysis of its templates.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.jacobcolvin.com/helmschema"
	"go.jacobcolvin.com/helmschema/log"
	"go.jacobcolvin.com/helmschema/oracle"
	"go.jacobcolvin.com/helmschema/profile"
	"go.jacobcolvin.com/helmschema/synth"
	"go.jacobcolvin.com/helmschema/version"
)

type cliConfig struct {
	log     *log.Config
	profile *profile.Config
	oracle  *oracle.Config
	synth   *synth.Config

	output           string
	compact          bool
	overrideSchema   string
	includeTests     bool
	noSubchartValues bool
}

func main() {
	cfg := &cliConfig{
		log:     log.NewConfig(),
		profile: profile.NewConfig(),
		oracle:  oracle.NewConfig(),
		synth:   synth.NewConfig(),
	}

	rootCmd := &cobra.Command{
		Use:   "helmschema [flags] <chart>",
		Short: "Generate a JSON Schema for a Helm chart's values overrides",
		Long: `helmschema statically analyzes a Helm chart - its templates, helpers, and
defaults - and emits a draft-07 JSON Schema describing the user-supplied
override document. No renderer is invoked and no cluster is contacted.`,
		Args:          cobra.ExactArgs(1),
		Version:       version.Print("helmschema"),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			return run(cfg, args[0])
		},
	}

	registerFlags(cfg, rootCmd.Flags())

	if err := registerCompletions(cfg, rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func registerFlags(cfg *cliConfig, flags *pflag.FlagSet) {
	flags.StringVarP(&cfg.output, "output", "o", "-",
		"output file path (- for stdout)")
	flags.BoolVar(&cfg.compact, "compact", false,
		"emit compact single-line JSON")
	flags.StringVar(&cfg.overrideSchema, "override-schema", "",
		"JSON file layered over the generated schema")
	flags.BoolVar(&cfg.includeTests, "include-tests", false,
		"also analyze templates under templates/tests")
	flags.BoolVar(&cfg.noSubchartValues, "no-subchart-values", false,
		"skip sub-chart values.yaml composition")

	cfg.log.RegisterFlags(flags)
	cfg.profile.RegisterFlags(flags)
	cfg.oracle.RegisterFlags(flags)
	cfg.synth.RegisterFlags(flags)
}

func registerCompletions(cfg *cliConfig, cmd *cobra.Command) error {
	if err := cfg.log.RegisterCompletions(cmd); err != nil {
		return err
	}

	if err := cfg.profile.RegisterCompletions(cmd); err != nil {
		return err
	}

	if err := cfg.oracle.RegisterCompletions(cmd); err != nil {
		return err
	}

	return cfg.synth.RegisterCompletions(cmd)
}

func run(cfg *cliConfig, chartPath string) error {
	// Diagnostics fan out through a publisher so warnings reach stderr
	// without coupling the pipeline to an output stream.
	publisher := log.NewPublisher()
	defer publisher.Close()

	sub := publisher.Subscribe()
	defer sub.Close()

	done := make(chan struct{})

	go func() {
		defer close(done)

		for entry := range sub.C() {
			_, _ = os.Stderr.Write(entry)
		}
	}()

	handler, err := cfg.log.NewHandler(publisher)
	if err != nil {
		return err
	}

	logger := slog.New(handler)

	profiler := cfg.profile.NewProfiler()
	if err := profiler.Start(); err != nil {
		return err
	}
	defer func() {
		if stopErr := profiler.Stop(); stopErr != nil {
			logger.Warn("stop profiler", slog.Any("error", stopErr))
		}
	}()

	chain, err := cfg.oracle.NewOracle(func(w oracle.Warning) {
		logger.Warn("resource schema unavailable",
			slog.String("apiVersion", w.Resource.APIVersion),
			slog.String("kind", w.Resource.Kind),
			slog.String("hint", w.Hint),
		)
	})
	if err != nil {
		return err
	}

	schema, err := helmschema.Generate(chartPath, helmschema.Options{
		IncludeTests:          cfg.includeTests,
		DisableSubchartValues: cfg.noSubchartValues,
		Oracle:                chain,
		Title:                 cfg.synth.Title,
		Description:           cfg.synth.Description,
		ID:                    cfg.synth.ID,
	})
	if err != nil {
		return err
	}

	if cfg.overrideSchema != "" {
		override, err := helmschema.LoadOverride(cfg.overrideSchema)
		if err != nil {
			return err
		}

		schema, err = helmschema.ApplyOverride(schema, override)
		if err != nil {
			return err
		}
	}

	out, err := synth.MarshalCanonical(schema, cfg.compact)
	if err != nil {
		return err
	}

	if err := writeOutput(cfg.output, out); err != nil {
		return err
	}

	publisher.Close()
	<-done

	return nil
}

func writeOutput(path string, out []byte) error {
	if path == "" || path == "-" {
		if _, err := os.Stdout.Write(out); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}

		return nil
	}

	if err := os.WriteFile(path, out, 0o644); err != nil { //nolint:gosec // Schema output is world-readable by design.
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}
