package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/propslice/internal/hierarchy"
	"github.com/raphaelgruber/propslice/internal/metrics"
	"github.com/raphaelgruber/propslice/internal/models"
	"github.com/raphaelgruber/propslice/internal/slicer"
)

// Theme holds the color scheme for console output.
type Theme struct {
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Success: lipgloss.Color("#00D787"), // green
	Warning: lipgloss.Color("#FFAF00"), // amber
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

// consoleReporter prints one line per job event. Safe for concurrent use.
type consoleReporter struct {
	mu   sync.Mutex
	out  io.Writer
	base string

	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	hint    lipgloss.Style
}

var _ slicer.Reporter = (*consoleReporter)(nil)

// newConsoleReporter creates a reporter writing to out. Colors are only
// emitted when out is a terminal.
func newConsoleReporter(out io.Writer, theme Theme) *consoleReporter {
	r := lipgloss.NewRenderer(out)
	base, _ := os.Getwd()
	return &consoleReporter{
		out:     out,
		base:    base,
		success: r.NewStyle().Foreground(theme.Success),
		warning: r.NewStyle().Foreground(theme.Warning),
		failure: r.NewStyle().Foreground(theme.Error).Bold(true),
		hint:    r.NewStyle().Foreground(theme.Hint).Italic(true),
	}
}

// Report prints a slice job result.
func (r *consoleReporter) Report(res models.JobResult) {
	var line string
	switch res.Outcome {
	case models.OutcomeSucceeded:
		line = r.success.Render(fmt.Sprintf("✅ Wrote %s (%d props, %s)",
			r.rel(res.Job.Destination), res.Props, formatSize(res.Bytes)))
	case models.OutcomeSkipped:
		line = r.warning.Render("⚠️  Missing input: " + r.rel(res.Job.Source))
	default:
		line = r.failure.Render(fmt.Sprintf("❌ Failed %s: %v", r.rel(res.Job.Source), res.Err))
	}
	r.println(line)
}

// ReportBranch prints a hierarchy branch result.
func (r *consoleReporter) ReportBranch(res hierarchy.BranchResult) {
	var line string
	switch res.Outcome {
	case models.OutcomeSucceeded:
		line = r.success.Render(fmt.Sprintf("✅ Built hierarchy/%s (%d sports, %d files, %s)",
			res.Branch, res.Sports, res.Files, formatSize(res.Bytes)))
	case models.OutcomeSkipped:
		line = r.warning.Render(fmt.Sprintf("⚠️  Skipped hierarchy/%s: %v", res.Branch, res.Err))
	default:
		line = r.failure.Render(fmt.Sprintf("❌ Failed hierarchy/%s: %v", res.Branch, res.Err))
	}
	r.println(line)
}

// Summary prints the batch totals, plus timing details when detailed is set.
func (r *consoleReporter) Summary(batch *slicer.BatchResult, snap metrics.Snapshot, detailed bool) {
	r.println(fmt.Sprintf("Sliced %d, skipped %d, failed %d",
		batch.Count(models.OutcomeSucceeded),
		batch.Count(models.OutcomeSkipped),
		batch.Count(models.OutcomeFailed)))

	if len(batch.Results) > 0 && !batch.AnySucceeded() && batch.Err() == nil {
		r.println(r.hint.Render("No slices written: every input is missing"))
	}

	if detailed {
		var parts []string
		if s := snap.Sliced; s != nil {
			parts = append(parts, fmt.Sprintf("slice avg %.1fms max %dms, %d props, %s",
				s.AvgTimeMs, s.MaxTimeMs, s.TotalProps, formatSize(s.TotalBytes)))
		}
		parts = append(parts, fmt.Sprintf("run %s in %s", batch.RunID, batch.Duration.Round(time.Millisecond)))
		r.println(r.hint.Render(strings.Join(parts, "; ")))
	}
}

func (r *consoleReporter) println(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, line)
}

// rel shortens path relative to the working directory when it lies below it.
func (r *consoleReporter) rel(path string) string {
	if r.base == "" {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(r.base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func formatSize(n int64) string {
	return fmt.Sprintf("%.1fKB", float64(n)/1024)
}
