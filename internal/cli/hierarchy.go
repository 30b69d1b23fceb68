package cli

import (
	"fmt"

	"github.com/raphaelgruber/propslice/internal/hierarchy"
	"github.com/raphaelgruber/propslice/internal/models"
	"github.com/spf13/cobra"
)

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy [branch...]",
	Short: "Split hierarchy branches into per-game and per-slate files",
	Long: `Split normalized hierarchy branches into per-game and per-slate prop files.

Reads <data-dir>/hierarchy/<branch>/props.json and games.json and writes, for
every sport with standard props, props-by-game/, props-by-slate/ and a
props-index.json under <data-dir>/hierarchy/<branch>/<sport>/.

Branches default to current_day and tomorrow. Branches with missing input are
skipped; the command fails only when an input cannot be parsed or an output
cannot be written.

Examples:
  propslice hierarchy
  propslice hierarchy tomorrow
  propslice hierarchy --data-dir /srv/feeds current_day`,
	RunE: runHierarchy,
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	reporter := newConsoleReporter(cmd.OutOrStdout(), defaultTheme)
	builder := hierarchy.NewBuilder(hierarchy.Options{
		DataDir: cfg.DataDir,
		Logger:  logger,
		Metrics: collector,
	})

	failed := 0
	results := builder.Run(cmd.Context(), args)
	for _, res := range results {
		reporter.ReportBranch(res)
		if res.Outcome == models.OutcomeFailed {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d hierarchy branches failed", failed, len(results))
	}
	return nil
}
