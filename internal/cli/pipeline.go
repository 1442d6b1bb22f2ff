package cli

import (
	"github.com/spf13/cobra"
)

type PipelineOptions struct {
	Key         string
	RunID       string
	File        string
	Out         string
	Report      string
	RowsSkipped int
	LoadRunID   int64
}

func NewPipelineCmd() *cobra.Command {
	opts := &PipelineOptions{}

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Pipeline stage entry points",
	}

	cmd.PersistentFlags().StringVarP(&opts.Key, "key", "k", "", "Object key in the raw bucket")
	cmd.PersistentFlags().StringVar(&opts.RunID, "run-id", "", "External run identifier (default: generated)")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the full stage sequence for one file",
		RunE: func(c *cobra.Command, args []string) error {
			return runPipelineRun(opts)
		},
	}

	download := &cobra.Command{
		Use:   "download",
		Short: "Download the raw file to a local path",
		RunE: func(c *cobra.Command, args []string) error {
			return runDownload(opts)
		},
	}
	download.Flags().StringVarP(&opts.Out, "out", "o", "", "Output path (default: temp file)")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate a downloaded file against the row contract",
		RunE: func(c *cobra.Command, args []string) error {
			return runValidate(opts)
		},
	}
	validate.Flags().StringVarP(&opts.File, "file", "f", "", "Downloaded file path")
	validate.Flags().StringVar(&opts.Report, "report", "", "Write the skip report JSON to this path")
	validate.MarkFlagRequired("file")

	transform := &cobra.Command{
		Use:   "transform",
		Short: "Clean a validated file into a load-ready CSV",
		RunE: func(c *cobra.Command, args []string) error {
			return runTransform(opts)
		},
	}
	transform.Flags().StringVarP(&opts.File, "file", "f", "", "Downloaded file path")
	transform.Flags().StringVarP(&opts.Out, "out", "o", "", "Cleaned CSV path (default: <file>.cleaned.csv)")
	transform.Flags().StringVar(&opts.Report, "report", "", "Write the skip report JSON to this path")
	transform.MarkFlagRequired("file")

	load := &cobra.Command{
		Use:   "load",
		Short: "Load a cleaned CSV into PostgreSQL",
		RunE: func(c *cobra.Command, args []string) error {
			return runLoad(opts)
		},
	}
	load.Flags().StringVarP(&opts.File, "file", "f", "", "Cleaned CSV path")
	load.Flags().StringVar(&opts.Report, "report", "", "Skip report JSON from the transform stage")
	load.Flags().IntVar(&opts.RowsSkipped, "rows-skipped", 0, "Skipped row count when no report is given")
	load.MarkFlagRequired("file")

	archive := &cobra.Command{
		Use:   "archive",
		Short: "Move a loaded file from the raw to the processed bucket",
		RunE: func(c *cobra.Command, args []string) error {
			return runArchive(opts)
		},
	}
	archive.Flags().Int64Var(&opts.LoadRunID, "load-run-id", 0, "pipeline_runs id of the succeeded load")
	archive.MarkFlagRequired("load-run-id")

	cmd.AddCommand(run, download, validate, transform, load, archive)
	return cmd
}
