// Package cli provides the command-line interface for propslice.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/raphaelgruber/propslice/internal/config"
	"github.com/raphaelgruber/propslice/internal/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	dataDir string

	// Per-invocation state, set up in PersistentPreRunE
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	collector  *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "propslice",
	Short: "Build size-bounded slices of ranked prop datasets",
	Long: `Propslice derives small "top N by rank" data files from large ranked
datasets so consumers with payload limits can be served a curated subset.

Each slice keeps the N best-ranked props (lowest rank first, unranked last),
copies every other field of the source unchanged and sets totalProps to the
number of props written.

Environment:
  ACTION_SLICE_LIMIT     props per slice (default 200)
  PROPSLICE_DATA_DIR     data directory (default "data")
  PROPSLICE_CONCURRENCY  parallel slice jobs (default 4)
  PROPSLICE_LOG_FILE     also write JSON logs to this file
  PROPSLICE_LOG_LEVEL    DEBUG, INFO, WARN or ERROR (default WARN)`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if cmd.Flags().Changed("data-dir") {
			cfg.DataDir = dataDir
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logCleanup = config.SetupLogger(cfg.LogFile, level)

		if cfg.LimitErr != nil {
			logger.Warn("ignoring ACTION_SLICE_LIMIT", "error", cfg.LimitErr, "default", config.DefaultSliceLimit)
		}

		collector = metrics.NewCollector()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// SIGINT and SIGTERM cancel running jobs.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		if logCleanup != nil {
			_ = logCleanup()
			logCleanup = nil
		}
	}()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides PROPSLICE_DATA_DIR)")

	// Add subcommands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(hierarchyCmd)
}
