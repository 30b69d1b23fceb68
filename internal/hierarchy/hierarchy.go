// Package hierarchy splits a normalized day branch into per-game and
// per-slate prop files plus a per-sport index.
//
// Input lives under <data>/hierarchy/<branch>/ as props.json and games.json.
// For every sport with standard props the builder writes
//
//	<sport>/props-by-game/<gameId>.json
//	<sport>/props-by-slate/<slate>.json
//	<sport>/props-index.json
package hierarchy

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/raphaelgruber/propslice/internal/artifact"
	"github.com/raphaelgruber/propslice/internal/metrics"
	"github.com/raphaelgruber/propslice/internal/models"
)

// DefaultBranches are the day branches rebuilt when none are requested.
var DefaultBranches = []string{"current_day", "tomorrow"}

// StandardOddsType is the only odds type included in the slices.
const StandardOddsType = "standard"

// ErrMalformedBranch indicates props.json or games.json could not be parsed.
var ErrMalformedBranch = errors.New("malformed hierarchy branch")

// Record is one opaque JSON object from props.json or games.json.
type Record = map[string]any

// GameEntry is a game line in props-index.json.
type GameEntry struct {
	GameID       string `json:"gameId"`
	Slate        any    `json:"slate"`
	StartTime    any    `json:"startTime"`
	StartTimeISO any    `json:"startTimeIso"`
	Teams        any    `json:"teams"`
	PropCount    int    `json:"propCount"`
	Path         string `json:"path"`
}

// SlateEntry is a slate line in props-index.json.
type SlateEntry struct {
	Slate     string `json:"slate"`
	PropCount int    `json:"propCount"`
	Path      string `json:"path"`
}

// Index is the content of props-index.json.
type Index struct {
	Sport     string       `json:"sport"`
	SportSlug string       `json:"sportSlug"`
	DayBranch string       `json:"dayBranch"`
	GameCount int          `json:"gameCount"`
	PropCount int          `json:"propCount"`
	Games     []GameEntry  `json:"games"`
	Slates    []SlateEntry `json:"slates"`
}

// BranchResult reports the outcome of one branch.
type BranchResult struct {
	Branch  string
	Outcome models.Outcome
	Err     error

	Sports int
	Files  int
	Bytes  int64
}

// Options configures a Builder.
type Options struct {
	// DataDir holds the hierarchy/ directory
	DataDir string
	// Logger for diagnostics (default slog.Default())
	Logger *slog.Logger
	// Metrics collects write statistics (optional)
	Metrics *metrics.Collector
}

// Builder writes hierarchy slices.
type Builder struct {
	root    string
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewBuilder creates a hierarchy slice builder.
func NewBuilder(opts Options) *Builder {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Builder{
		root:    filepath.Join(opts.DataDir, "hierarchy"),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Run builds every branch in order. A failing branch does not stop the rest.
func (b *Builder) Run(ctx context.Context, branches []string) []BranchResult {
	if len(branches) == 0 {
		branches = DefaultBranches
	}
	results := make([]BranchResult, 0, len(branches))
	for _, branch := range branches {
		results = append(results, b.BuildBranch(ctx, branch))
	}
	return results
}

// BuildBranch builds the slices of one branch. The branch is skipped when
// props.json or games.json is missing.
func (b *Builder) BuildBranch(ctx context.Context, branch string) BranchResult {
	res := BranchResult{Branch: branch}
	logger := b.logger.With("branch", branch)

	if err := ctx.Err(); err != nil {
		res.Outcome = models.OutcomeFailed
		res.Err = fmt.Errorf("branch not started: %w", err)
		return res
	}

	dir := filepath.Join(b.root, branch)
	propsPath := filepath.Join(dir, "props.json")
	gamesPath := filepath.Join(dir, "games.json")

	for _, p := range []string{propsPath, gamesPath} {
		ok, err := artifact.Exists(p)
		if err != nil {
			res.Outcome = models.OutcomeFailed
			res.Err = fmt.Errorf("%w: %v", ErrMalformedBranch, err)
			return res
		}
		if !ok {
			logger.Warn("hierarchy input missing, branch skipped", "path", p)
			res.Outcome = models.OutcomeSkipped
			res.Err = fmt.Errorf("missing input: %s", p)
			return res
		}
	}

	var props, games []Record
	if err := artifact.ReadJSON(propsPath, &props); err != nil {
		res.Outcome = models.OutcomeFailed
		res.Err = fmt.Errorf("%w: %s: %v", ErrMalformedBranch, propsPath, err)
		return res
	}
	if err := artifact.ReadJSON(gamesPath, &games); err != nil {
		res.Outcome = models.OutcomeFailed
		res.Err = fmt.Errorf("%w: %s: %v", ErrMalformedBranch, gamesPath, err)
		return res
	}

	gameMeta := indexGames(games)

	// Group standard props by sport, keeping first-seen sport order.
	bySport := make(map[string][]Record)
	var sports []string
	for _, p := range props {
		if odds, _ := p["oddsType"].(string); odds != StandardOddsType {
			continue
		}
		sport := stringField(p["sport"])
		if sport == "" {
			continue
		}
		if _, seen := bySport[sport]; !seen {
			sports = append(sports, sport)
		}
		bySport[sport] = append(bySport[sport], p)
	}

	for _, sport := range sports {
		if err := ctx.Err(); err != nil {
			res.Outcome = models.OutcomeFailed
			res.Err = fmt.Errorf("branch cancelled: %w", err)
			return res
		}

		files, n, err := b.buildSport(logger, branch, sport, bySport[sport], gameMeta)
		res.Files += files
		res.Bytes += n
		if err != nil {
			res.Outcome = models.OutcomeFailed
			res.Err = err
			return res
		}
		res.Sports++
	}

	logger.Info("hierarchy branch built", "sports", res.Sports, "files", res.Files, "bytes", res.Bytes)
	res.Outcome = models.OutcomeSucceeded
	return res
}

type gameInfo struct {
	slate     any
	startTime any
	teams     any
}

func indexGames(games []Record) map[string]gameInfo {
	meta := make(map[string]gameInfo, len(games))
	for _, g := range games {
		id := stringField(g["gameId"])
		if id == "" || stringField(g["sport"]) == "" {
			continue
		}
		meta[id] = gameInfo{
			slate:     g["slate"],
			startTime: g["startTime"],
			teams:     g["teams"],
		}
	}
	return meta
}

func (b *Builder) buildSport(logger *slog.Logger, branch, sport string, props []Record, gameMeta map[string]gameInfo) (int, int64, error) {
	sportSlug := Slug(sport)
	if sportSlug == "" {
		logger.Warn("sport has no usable slug, skipped", "sport", sport)
		return 0, 0, nil
	}
	sportRoot := filepath.Join(b.root, branch, sportSlug)
	urlRoot := "/data/hierarchy/" + branch + "/" + sportSlug

	byGame := make(map[string][]Record)
	bySlate := make(map[string][]Record)
	for _, p := range props {
		gameID := stringField(p["gameId"])
		if gameID == "" {
			continue
		}
		byGame[gameID] = append(byGame[gameID], p)

		if slate := stringField(gameMeta[gameID].slate); slate != "" {
			if s := Slug(slate); s != "" {
				bySlate[s] = append(bySlate[s], p)
			}
		}
	}

	var (
		files int
		total int64
	)
	write := func(path string, v any, count int) error {
		start := time.Now()
		n, err := artifact.WriteJSON(path, v)
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		files++
		total += n
		if b.metrics != nil {
			b.metrics.RecordWrite(metrics.OpHierarchy, time.Since(start), n, int64(count))
		}
		return nil
	}

	games := make([]GameEntry, 0, len(byGame))
	for _, gameID := range sortedKeys(byGame) {
		if !safeFileName(gameID) {
			logger.Warn("game id is not a safe file name, skipped", "game_id", gameID)
			continue
		}
		items := byGame[gameID]
		if err := write(filepath.Join(sportRoot, "props-by-game", gameID+".json"), items, len(items)); err != nil {
			return files, total, err
		}

		meta := gameMeta[gameID]
		var startISO any
		if len(items) > 0 {
			startISO = items[0]["startTimeIso"]
		}
		games = append(games, GameEntry{
			GameID:       gameID,
			Slate:        meta.slate,
			StartTime:    meta.startTime,
			StartTimeISO: startISO,
			Teams:        meta.teams,
			PropCount:    len(items),
			Path:         urlRoot + "/props-by-game/" + gameID + ".json",
		})
	}

	slates := make([]SlateEntry, 0, len(bySlate))
	for _, slate := range sortedKeys(bySlate) {
		items := bySlate[slate]
		if err := write(filepath.Join(sportRoot, "props-by-slate", slate+".json"), items, len(items)); err != nil {
			return files, total, err
		}
		slates = append(slates, SlateEntry{
			Slate:     slate,
			PropCount: len(items),
			Path:      urlRoot + "/props-by-slate/" + slate + ".json",
		})
	}

	slices.SortStableFunc(games, func(a, b GameEntry) int {
		if c := cmp.Compare(stringField(a.StartTimeISO), stringField(b.StartTimeISO)); c != 0 {
			return c
		}
		return cmp.Compare(a.GameID, b.GameID)
	})

	index := Index{
		Sport:     sport,
		SportSlug: sportSlug,
		DayBranch: branch,
		GameCount: len(games),
		PropCount: len(props),
		Games:     games,
		Slates:    slates,
	}
	if err := write(filepath.Join(sportRoot, "props-index.json"), index, len(props)); err != nil {
		return files, total, err
	}

	logger.Debug("sport slices written", "sport", sport, "games", len(games), "slates", len(slates))
	return files, total, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and collapses every run of characters outside [a-z0-9]
// into a single dash, trimming dashes at both ends.
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlug.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// stringField renders a string or number value as a trimmed string.
// Everything else, including zero-length strings, yields "".
func stringField(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return ""
	}
}

func safeFileName(name string) bool {
	return name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

func sortedKeys(m map[string][]Record) []string {
	return slices.Sorted(maps.Keys(m))
}
