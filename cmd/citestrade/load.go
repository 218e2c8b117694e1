package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/citestrade/internal/dataset"
	"github.com/nao1215/citestrade/internal/report"
	"github.com/spf13/cobra"
)

// NewLoadCmd creates the load command.
func NewLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Verify the combined dataset and print a summary",
		Long: `Load checks the checksum of the combined dataset, reads it and prints a
summary: row count, year range, columns and the most frequent trade
partners.

The expected checksum comes from the checksum registry or, when the
registry does not know it, from the history recorded by 'citestrade get'.
If the combined dataset does not exist yet, run 'citestrade get' or pass
--update.

Examples:
  # Summarise the combined dataset
  citestrade load

  # Download and combine first
  citestrade load --update

  # Write a Markdown report
  citestrade load --markdown -o report.md

  # JSON for other tools
  citestrade load --json`,
		Args: cobra.NoArgs,
		RunE: runLoadCmd,
	}

	cmd.Flags().BoolP("update", "u", false,
		"Run get before loading")
	cmd.Flags().Bool("force-update", false,
		"With --update, download the archive even if it already exists locally")
	cmd.Flags().Bool("cleanup", false,
		"With --update, delete the archive and the extracted CSV files")
	addPipelineFlags(cmd)

	// Report flags
	cmd.Flags().Bool("json", false,
		"Output JSON summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write summary to specified file path (creates directories if needed)")
	cmd.Flags().IntP("top", "n", report.DefaultTopN,
		"Number of trade partners listed per direction")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// runLoadCmd executes the load command.
func runLoadCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	update, err := flags.GetBool("update")
	if err != nil {
		return err
	}
	if cfg.ForceUpdate, err = flags.GetBool("force-update"); err != nil {
		return err
	}
	if cfg.Cleanup, err = flags.GetBool("cleanup"); err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	outputPath, err := flags.GetString("output")
	if err != nil {
		return err
	}
	topN, err := flags.GetInt("top")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	ds, err := dataset.Open(ctx, cfg, update,
		dataset.WithLogger(logger),
		dataset.WithProgressOutput(cmd.ErrOrStderr()),
	)
	if err != nil {
		return err
	}

	summary := report.NewSummary(ds.Table,
		report.WithSource(ds.Path, ds.Version, ds.Checksum, ds.Algorithm),
		report.WithTopN(topN),
	)

	var output io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := createReportFile(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case jsonOutput:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case markdownOutput:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	// A file report is echoed to the terminal in plain text.
	if outputPath != "" {
		w = report.NewMultiWriter(w, report.NewSimpleWriter(cmd.OutOrStdout()))
	}

	if _, err := w.Write(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if outputPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Summary written to %s\n", outputPath)
	}
	return nil
}

// createReportFile creates or truncates path, creating its directory.
func createReportFile(path string) (*os.File, error) {
	if path == "" {
		return nil, errors.New("empty output path")
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
