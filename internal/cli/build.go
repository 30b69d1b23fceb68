package cli

import (
	"errors"
	"fmt"

	"github.com/raphaelgruber/propslice/internal/manifest"
	"github.com/raphaelgruber/propslice/internal/models"
	"github.com/raphaelgruber/propslice/internal/slicer"
	"github.com/spf13/cobra"
)

// errNoOutput is returned with --require-output when no slice was written.
var errNoOutput = errors.New("no slices written")

var (
	buildLimit         int
	buildConcurrency   int
	buildManifest      string
	buildRequireOutput bool
)

var buildCmd = &cobra.Command{
	Use:   "build [source...]",
	Short: "Build top-by-rank slices",
	Long: `Build top-by-rank slices of ranked datasets.

Without arguments the default feeds in the data directory are sliced:
  prizepicks-nfl-tomorrow.json -> prizepicks-nfl-tomorrow-top-<limit>.json
  prizepicks-nfl-today.json    -> prizepicks-nfl-today-top-<limit>.json

Sources given as arguments are written next to themselves with the same
"-top-<limit>" suffix. A YAML manifest can list jobs with explicit
destinations and per-job limits instead.

Missing sources are reported and skipped. The command fails only when a
source cannot be parsed or a slice cannot be written; other jobs still run.

Examples:
  propslice build
  propslice build --limit 50
  propslice build data/nba.json data/nfl.json
  propslice build --manifest slices.yaml`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().IntVarP(&buildLimit, "limit", "n", 0, "props per slice (overrides ACTION_SLICE_LIMIT)")
	buildCmd.Flags().IntVarP(&buildConcurrency, "concurrency", "c", 0, "parallel jobs (overrides PROPSLICE_CONCURRENCY)")
	buildCmd.Flags().StringVarP(&buildManifest, "manifest", "m", "", "YAML manifest listing slice jobs")
	buildCmd.Flags().BoolVar(&buildRequireOutput, "require-output", false, "fail when no slice is written")
}

func runBuild(cmd *cobra.Command, args []string) error {
	limit := cfg.SliceLimit
	if cmd.Flags().Changed("limit") {
		if buildLimit >= 1 {
			limit = buildLimit
		} else {
			logger.Warn("ignoring non-positive --limit", "limit", buildLimit, "using", limit)
		}
	}

	concurrency := cfg.Concurrency
	if cmd.Flags().Changed("concurrency") && buildConcurrency >= 1 {
		concurrency = buildConcurrency
	}

	jobs, err := resolveJobs(args, limit)
	if err != nil {
		return err
	}

	reporter := newConsoleReporter(cmd.OutOrStdout(), defaultTheme)
	builder := slicer.NewBuilder(slicer.Options{
		DefaultLimit: limit,
		Concurrency:  concurrency,
		Logger:       logger,
		Reporter:     reporter,
		Metrics:      collector,
	})

	batch := builder.RunBatch(cmd.Context(), jobs)
	reporter.Summary(batch, collector.Snapshot(), verbose)

	if err := batch.Err(); err != nil {
		return err
	}
	if buildRequireOutput && !batch.AnySucceeded() {
		return errNoOutput
	}
	return nil
}

// resolveJobs picks the job source: manifest, positional sources, or defaults.
func resolveJobs(args []string, limit int) ([]models.JobDescriptor, error) {
	switch {
	case buildManifest != "" && len(args) > 0:
		return nil, fmt.Errorf("use either --manifest or source arguments, not both")
	case buildManifest != "":
		m, err := manifest.Load(buildManifest)
		if err != nil {
			return nil, err
		}
		return m.JobDescriptors(limit), nil
	case len(args) > 0:
		return manifest.JobsFromSources(args, limit), nil
	default:
		return manifest.DefaultJobs(cfg.DataDir, limit), nil
	}
}
