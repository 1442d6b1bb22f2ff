// Package cli wires the command-line interface using Cobra.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sales-etl",
		Short: "sales-etl - batch ETL for e-commerce sales files",
		Long: `sales-etl moves synthetic sales files through object storage into PostgreSQL:
generate -> raw bucket -> download -> validate -> transform -> load -> archive.
Each pipeline stage is also invocable on its own so an external scheduler can
drive the sequence.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewPipelineCmd())

	return rootCmd
}
