package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/citestrade/internal/config"
	"github.com/nao1215/citestrade/internal/dataset"
	applog "github.com/nao1215/citestrade/internal/log"
	"github.com/spf13/cobra"
)

// NewGetCmd creates the get command.
func NewGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Download, verify and combine the trade database",
		Long: `Get downloads the CITES Trade Database archive, verifies its checksum,
extracts the CSV files and combines them into one gzip compressed CSV.

Rows whose Year is missing or not numeric are dropped and only years
after 1970 and before 2020 are kept. The result is sorted by Year, Taxon,
Order, Family, Genus, Term, Importer, Exporter and Appendix.

The download is skipped when the archive is already in the cache
directory unless --force-update (or --force_update) is given.

Examples:
  # Download (if needed) and combine
  citestrade get

  # Download again and remove the archive and CSV files afterwards
  citestrade get --force-update --cleanup

  # Use a specific dataset version from the checksum registry
  citestrade get --dataset-version 2019.2

  # Download through a SOCKS5 proxy
  citestrade get --proxy 127.0.0.1:1080`,
		Args: cobra.NoArgs,
		RunE: runGetCmd,
	}

	cmd.Flags().Bool("force-update", false,
		"Download the archive even if it already exists locally")
	cmd.Flags().Bool("cleanup", false,
		"Delete the archive and the extracted CSV files after combining")
	addPipelineFlags(cmd)

	return cmd
}

// addPipelineFlags registers the flags shared by get and load.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("dataset-version", "",
		"Checksum registry version (default: the registry's current version)")
	cmd.Flags().String("registry", "",
		"Checksum registry YAML file replacing the embedded one")
	cmd.Flags().StringP("proxy", "x", "",
		"SOCKS5 proxy address for downloads (e.g., 127.0.0.1:1080)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"HTTP request timeout")
	cmd.Flags().IntP("concurrency", "j", config.DefaultReadConcurrency,
		"Number of CSV files parsed at once")
	cmd.Flags().Bool("strict-schema", false,
		"Fail when the extracted CSV files have different columns")
}

// runGetCmd executes the get command.
func runGetCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("force-update") {
		if cfg.ForceUpdate, err = cmd.Flags().GetBool("force-update"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("cleanup") {
		if cfg.Cleanup, err = cmd.Flags().GetBool("cleanup"); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	startTime := time.Now()
	path, err := dataset.Get(ctx, cfg,
		dataset.WithLogger(logger),
		dataset.WithProgressOutput(cmd.ErrOrStderr()),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Combined dataset written to %s in %s\n",
		path, time.Since(startTime).Round(time.Millisecond))
	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config path from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// buildConfig creates a Config from defaults, the configuration file and
// the pipeline flags, in that order. Only flags set on the command line
// override file values.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.ConfigFilePath = getConfigFlag(cmd)

	// An explicit path that does not exist is an error; a missing default
	// file is not.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := file.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	flags := cmd.Flags()
	var err error
	if flags.Changed("dataset-version") {
		if cfg.DatasetVersion, err = flags.GetString("dataset-version"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("registry") {
		if cfg.RegistryFile, err = flags.GetString("registry"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.ReadConcurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("strict-schema") {
		if cfg.StrictSchema, err = flags.GetBool("strict-schema"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// setupLogger creates a structured logger that redacts credentials.
func setupLogger(verbose bool) *slog.Logger {
	return applog.NewSecureLogger(os.Stderr, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
