package oracle

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flags holds CLI flag names for oracle configuration, allowing callers to
// customize flag names while keeping sensible defaults.
type Flags struct {
	KubeVersion     string
	CacheDir        string
	AllowNetwork    string
	DisableUpstream string
	CRDCatalogDir   string
}

// Config holds CLI flag values for oracle configuration.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.NewOracle] to build the composed
// oracle chain.
type Config struct {
	Flags           Flags
	KubeVersion     string
	CacheDir        string
	CRDCatalogDir   string
	AllowNetwork    bool
	DisableUpstream bool
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	return &Config{
		Flags: Flags{
			KubeVersion:     "kube-version",
			CacheDir:        "schema-cache-dir",
			AllowNetwork:    "allow-network",
			DisableUpstream: "disable-kube-schemas",
			CRDCatalogDir:   "crd-catalog-dir",
		},
	}
}

// RegisterFlags adds oracle flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.KubeVersion, c.Flags.KubeVersion, "v1.35.0",
		"target Kubernetes API version for upstream schemas")
	flags.StringVar(&c.CacheDir, c.Flags.CacheDir, "",
		"schema cache directory (default: XDG or home cache)")
	flags.BoolVar(&c.AllowNetwork, c.Flags.AllowNetwork, false,
		"allow fetching missing upstream schemas over the network")
	flags.BoolVar(&c.DisableUpstream, c.Flags.DisableUpstream, false,
		"disable the upstream Kubernetes schema store")
	flags.StringVar(&c.CRDCatalogDir, c.Flags.CRDCatalogDir, "",
		"directory of a CRD schema catalog (index.yaml plus schema files)")
}

// RegisterCompletions registers shell completions for oracle flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.KubeVersion,
		cobra.FixedCompletions([]string{"v1.33.0", "v1.34.0", "v1.35.0"}, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.KubeVersion, err)
	}

	for _, flag := range []string{c.Flags.CacheDir, c.Flags.CRDCatalogDir} {
		regErr := cmd.RegisterFlagCompletionFunc(flag,
			func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
				return nil, cobra.ShellCompDirectiveFilterDirs
			})
		if regErr != nil {
			return fmt.Errorf("registering %s completion: %w", flag, regErr)
		}
	}

	return nil
}

// NewOracle builds the composed oracle: upstream store, then CRD catalog,
// then the heuristic table, chained with first-hit semantics.
func (c *Config) NewOracle(warn WarnFunc) (*Chain, error) {
	var oracles []Oracle

	if !c.DisableUpstream {
		opts := []UpstreamOption{WithNetwork(c.AllowNetwork)}
		if c.CacheDir != "" {
			opts = append(opts, WithCacheDir(c.CacheDir))
		}

		oracles = append(oracles, NewUpstream(c.KubeVersion, opts...))
	}

	if c.CRDCatalogDir != "" {
		catalog, err := NewCRDCatalog(c.CRDCatalogDir)
		if err != nil {
			return nil, err
		}

		oracles = append(oracles, catalog)
	}

	oracles = append(oracles, Heuristic{})

	return NewChain(oracles...).WithWarnings(warn), nil
}
