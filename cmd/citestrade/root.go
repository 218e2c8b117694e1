package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewRootCmd creates the root command for citestrade.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "citestrade",
		Short: "Download and combine the CITES Trade Database",
		Long: `citestrade downloads the CITES Trade Database bulk export, verifies its
checksum, extracts the per-period CSV files and combines them into a single
filtered, sorted dataset stored as a gzip compressed CSV.

The archive and the extracted files live in the cache directory, the
combined dataset and the history database in the data directory.`,
		Version:       currentVersion().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .citestrade in current or home directory)")

	cmd.SetGlobalNormalizationFunc(underscoreToDash)

	cmd.AddCommand(NewGetCmd())
	cmd.AddCommand(NewLoadCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// underscoreToDash lets --force_update stand for --force-update.
func underscoreToDash(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
