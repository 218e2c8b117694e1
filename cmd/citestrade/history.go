package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/citestrade/internal/database"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of snapshots listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List combined datasets produced by get",
		Long: `History lists the snapshots recorded by 'citestrade get', newest first.

Each snapshot records the dataset version, the archive and combined file
checksums and the number of rows written.

Examples:
  # Show the latest snapshots
  citestrade history

  # Show every snapshot as JSON
  citestrade history --limit 0 --json

  # Show one snapshot with its source files
  citestrade history --id 3f2a9c1e-...`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", defaultHistoryLimit,
		"Maximum number of snapshots to list (0 lists all)")
	cmd.Flags().Bool("json", false,
		"Output snapshots in JSON format")
	cmd.Flags().String("id", "",
		"Show a single snapshot by ID")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	id, err := cmd.Flags().GetString("id")
	if err != nil {
		return err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(cfg.DataDir, opts)
	if errors.Is(err, os.ErrNotExist) {
		if id != "" {
			return fmt.Errorf("snapshot not found: %s", id)
		}
		return printSnapshots(cmd.OutOrStdout(), nil, jsonOutput)
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if id != "" {
		s, err := db.GetSnapshot(context.Background(), id)
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("snapshot not found: %s", id)
		}
		return printSnapshot(cmd.OutOrStdout(), s, jsonOutput)
	}

	snapshots, err := db.ListSnapshots(context.Background(), limit)
	if err != nil {
		return err
	}
	return printSnapshots(cmd.OutOrStdout(), snapshots, jsonOutput)
}

// printSnapshots writes snapshots as a table or as JSON.
func printSnapshots(w io.Writer, snapshots []database.Snapshot, jsonOutput bool) error {
	if jsonOutput {
		if snapshots == nil {
			snapshots = []database.Snapshot{}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(snapshots)
	}

	if len(snapshots) == 0 {
		fmt.Fprintln(w, "No combined datasets recorded yet.")
		fmt.Fprintln(w, "\nUse 'citestrade get' to download and combine the trade database.")
		return nil
	}

	fmt.Fprintf(w, "Combined datasets (%d):\n\n", len(snapshots))
	fmt.Fprintf(w, "  %-8s  %-8s  %-14s  %12s  %-32s  %s\n", "ID", "Version", "Created", "Rows", "Checksum", "Path")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 100))
	for _, s := range snapshots {
		id := s.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "  %-8s  %-8s  %-14s  %12s  %-32s  %s\n",
			id,
			s.Version,
			humanize.Time(s.CreatedAt),
			humanize.Comma(int64(s.Rows)),
			s.CombinedChecksum,
			s.CombinedPath,
		)
	}
	return nil
}

// printSnapshot writes every field of one snapshot.
func printSnapshot(w io.Writer, s *database.Snapshot, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(s)
	}

	fmt.Fprintf(w, "ID:        %s\n", s.ID)
	fmt.Fprintf(w, "Version:   %s\n", s.Version)
	fmt.Fprintf(w, "Created:   %s (%s)\n", s.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(s.CreatedAt))
	fmt.Fprintf(w, "Rows:      %s\n", humanize.Comma(int64(s.Rows)))
	fmt.Fprintf(w, "Archive:   %s\n", s.ArchivePath)
	fmt.Fprintf(w, "           %s %s\n", s.Algorithm, s.ArchiveChecksum)
	fmt.Fprintf(w, "Combined:  %s\n", s.CombinedPath)
	fmt.Fprintf(w, "           %s %s\n", s.Algorithm, s.CombinedChecksum)
	if len(s.SourceFiles) > 0 {
		fmt.Fprintln(w, "Sources:")
		for _, f := range s.SourceFiles {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	return nil
}
