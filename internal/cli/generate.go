package cli

import (
	"github.com/spf13/cobra"
)

type GenerateOptions struct {
	Rows int
	Seed int64
}

func NewGenerateCmd() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic sales CSV and upload it to the raw bucket",
		RunE: func(c *cobra.Command, args []string) error {
			return runGenerate(opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Rows, "rows", "n", 0, "Number of rows (default GENERATOR_NUM_ROWS)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "Random seed (default GENERATOR_SEED)")

	return cmd
}

func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema migrations",
		RunE: func(c *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}
