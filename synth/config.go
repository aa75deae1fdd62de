package synth

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.jacobcolvin.com/helmschema/oracle"
)

// Flags holds CLI flag names for schema synthesis configuration, allowing
// callers to customize flag names while keeping sensible defaults.
type Flags struct {
	Title       string
	Description string
	ID          string
}

// Config holds CLI flag values for schema synthesis configuration.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.NewGenerator] to create a
// [Generator].
type Config struct {
	Flags       Flags
	Title       string
	Description string
	ID          string
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	return &Config{
		Flags: Flags{
			Title:       "title",
			Description: "description",
			ID:          "id",
		},
	}
}

// RegisterFlags adds synthesis flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Title, c.Flags.Title, "",
		"schema title field")
	flags.StringVar(&c.Description, c.Flags.Description, "",
		"schema description field")
	flags.StringVar(&c.ID, c.Flags.ID, "",
		"schema $id field")
}

// RegisterCompletions registers shell completions for synthesis flags on
// cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	noFileComp := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	for _, flag := range []string{c.Flags.Title, c.Flags.Description, c.Flags.ID} {
		if err := cmd.RegisterFlagCompletionFunc(flag, noFileComp); err != nil {
			return err
		}
	}

	return nil
}

// NewGenerator creates a [Generator] using this [Config] and the given
// oracle.
func (c *Config) NewGenerator(o oracle.Oracle) *Generator {
	opts := []Option{WithOracle(o)}

	if c.Title != "" {
		opts = append(opts, WithTitle(c.Title))
	}

	if c.Description != "" {
		opts = append(opts, WithDescription(c.Description))
	}

	if c.ID != "" {
		opts = append(opts, WithID(c.ID))
	}

	return NewGenerator(opts...)
}
