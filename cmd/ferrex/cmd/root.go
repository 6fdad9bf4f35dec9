// Package cmd provides the CLI commands for ferrex.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cerplabs/ferrex/internal/config"
	"github.com/cerplabs/ferrex/internal/logging"
)

var (
	indexPath string
	indexSize int

	loggingCleanup func()
)

// NewRootCmd creates the root command for the ferrex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ferrex",
		Short: "Embedded full-text and faceted search engine",
		Long: `ferrex indexes JSON-shaped documents into an on-disk ordered
key/value store and answers ranked queries mixing free-text terms,
facet filters, and optional geo-proximity ordering.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}

	cmd.PersistentFlags().StringVar(&indexPath, "index-path", "./ferrex-index", "Path to the index directory")
	cmd.PersistentFlags().IntVar(&indexSize, "index-size", 0, "Initial index store map size in MB, a sizing hint (0 uses config/defaults)")

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSettingsCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}()
	return NewRootCmd().Execute()
}

// setupLogging wires up file-based structured logging before any
// subcommand runs.
func setupLogging(_ *cobra.Command, _ []string) error {
	logger, cleanup, err := logging.Setup(logging.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads ferrex's layered configuration, applying --index-path
// and --index-size as the final (highest-precedence) overrides.
func loadConfig() (*config.Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	if indexPath != "" {
		cfg.Index.Path = indexPath
	}
	if indexSize > 0 {
		cfg.Index.SizeMB = indexSize
	}
	return cfg, nil
}
