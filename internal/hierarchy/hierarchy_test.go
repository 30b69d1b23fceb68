package hierarchy

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/raphaelgruber/propslice/internal/metrics"
	"github.com/raphaelgruber/propslice/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBranch(t *testing.T, dataDir, branch, props, games string) {
	t.Helper()
	dir := filepath.Join(dataDir, "hierarchy", branch)
	require.NoError(t, os.MkdirAll(dir, 0755))
	if props != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "props.json"), []byte(props), 0644))
	}
	if games != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "games.json"), []byte(games), 0644))
	}
}

func newTestBuilder(dataDir string, col *metrics.Collector) *Builder {
	return NewBuilder(Options{
		DataDir: dataDir,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: col,
	})
}

const testGames = `[
  {"gameId": "g2", "sport": "NFL", "slate": "Late", "startTime": "10/05/25 03:25 PM CST", "teams": ["DAL", "NYG"]},
  {"gameId": "g1", "sport": "NFL", "slate": "Early", "startTime": "10/05/25 12:00 PM CST", "teams": ["KC", "BUF"]},
  {"gameId": "", "sport": "NFL", "slate": "Early"},
  {"gameId": "g9", "sport": "", "slate": "Early"}
]`

const testProps = `[
  {"propId": "p1", "gameId": "g2", "sport": "NFL", "oddsType": "standard", "startTimeIso": "2025-10-05T20:25:00Z", "line": 24.5},
  {"propId": "p2", "gameId": "g1", "sport": "NFL", "oddsType": "standard", "startTimeIso": "2025-10-05T17:00:00Z"},
  {"propId": "p3", "gameId": "g1", "sport": "NFL", "oddsType": "demon", "startTimeIso": "2025-10-05T17:00:00Z"},
  {"propId": "p4", "gameId": "g1", "sport": "NFL", "oddsType": "standard", "startTimeIso": "2025-10-05T17:00:00Z"},
  {"propId": "p5", "sport": "NFL", "oddsType": "standard"},
  {"propId": "p6", "gameId": "g9", "sport": "NFL", "oddsType": "standard"},
  {"propId": "p7", "gameId": "n1", "sport": "College Football", "oddsType": "standard"},
  {"propId": "p8", "gameId": "g1", "sport": "", "oddsType": "standard"}
]`

func readIndex(t *testing.T, path string) Index {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var idx Index
	require.NoError(t, json.Unmarshal(data, &idx))
	return idx
}

func propIDs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(data, &items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it["propId"].(string))
	}
	return ids
}

func TestBuildBranch(t *testing.T) {
	dataDir := t.TempDir()
	writeBranch(t, dataDir, "current_day", testProps, testGames)

	col := metrics.NewCollector()
	res := newTestBuilder(dataDir, col).BuildBranch(context.Background(), "current_day")

	require.Equal(t, models.OutcomeSucceeded, res.Outcome, "err: %v", res.Err)
	assert.Equal(t, 2, res.Sports)

	nfl := filepath.Join(dataDir, "hierarchy", "current_day", "nfl")

	// Per-game files hold the standard props of that game in source order.
	assert.Equal(t, []string{"p2", "p4"}, propIDs(t, filepath.Join(nfl, "props-by-game", "g1.json")))
	assert.Equal(t, []string{"p1"}, propIDs(t, filepath.Join(nfl, "props-by-game", "g2.json")))
	assert.Equal(t, []string{"p6"}, propIDs(t, filepath.Join(nfl, "props-by-game", "g9.json")))

	// Slates come from the game lookup; g9 has no usable game entry.
	assert.Equal(t, []string{"p2", "p4"}, propIDs(t, filepath.Join(nfl, "props-by-slate", "early.json")))
	assert.Equal(t, []string{"p1"}, propIDs(t, filepath.Join(nfl, "props-by-slate", "late.json")))

	idx := readIndex(t, filepath.Join(nfl, "props-index.json"))
	assert.Equal(t, "NFL", idx.Sport)
	assert.Equal(t, "nfl", idx.SportSlug)
	assert.Equal(t, "current_day", idx.DayBranch)
	assert.Equal(t, 3, idx.GameCount)
	assert.Equal(t, 5, idx.PropCount)

	require.Len(t, idx.Games, 3)
	// Sorted by startTimeIso, missing values first.
	assert.Equal(t, "g9", idx.Games[0].GameID)
	assert.Nil(t, idx.Games[0].Slate)
	assert.Equal(t, "g1", idx.Games[1].GameID)
	assert.Equal(t, "Early", idx.Games[1].Slate)
	assert.Equal(t, 2, idx.Games[1].PropCount)
	assert.Equal(t, []any{"KC", "BUF"}, idx.Games[1].Teams)
	assert.Equal(t, "/data/hierarchy/current_day/nfl/props-by-game/g1.json", idx.Games[1].Path)
	assert.Equal(t, "g2", idx.Games[2].GameID)

	assert.Equal(t, []SlateEntry{
		{Slate: "early", PropCount: 2, Path: "/data/hierarchy/current_day/nfl/props-by-slate/early.json"},
		{Slate: "late", PropCount: 1, Path: "/data/hierarchy/current_day/nfl/props-by-slate/late.json"},
	}, idx.Slates)

	cfb := readIndex(t, filepath.Join(dataDir, "hierarchy", "current_day", "college-football", "props-index.json"))
	assert.Equal(t, 1, cfb.GameCount)
	assert.Empty(t, cfb.Slates)

	snap := col.Snapshot()
	require.NotNil(t, snap.Hierarchy)
	assert.Equal(t, int64(res.Files), snap.Hierarchy.Count)
	assert.Equal(t, res.Bytes, snap.Hierarchy.TotalBytes)
}

func TestBuildBranch_NumbersRoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	writeBranch(t, dataDir, "tomorrow",
		`[{"gameId": 101, "sport": "NFL", "oddsType": "standard", "line": 24.50}]`,
		`[{"gameId": 101, "sport": "NFL", "slate": "Early"}]`)

	res := newTestBuilder(dataDir, nil).BuildBranch(context.Background(), "tomorrow")
	require.Equal(t, models.OutcomeSucceeded, res.Outcome, "err: %v", res.Err)

	data, err := os.ReadFile(filepath.Join(dataDir, "hierarchy", "tomorrow", "nfl", "props-by-game", "101.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"line": 24.50`)
	assert.Contains(t, string(data), `"gameId": 101`)
}

func TestBuildBranch_MissingInputSkips(t *testing.T) {
	dataDir := t.TempDir()
	writeBranch(t, dataDir, "tomorrow", testProps, "")

	res := newTestBuilder(dataDir, nil).BuildBranch(context.Background(), "tomorrow")

	assert.Equal(t, models.OutcomeSkipped, res.Outcome)
	assert.NoDirExists(t, filepath.Join(dataDir, "hierarchy", "tomorrow", "nfl"))
}

func TestBuildBranch_Malformed(t *testing.T) {
	dataDir := t.TempDir()
	writeBranch(t, dataDir, "current_day", `{"not": "an array"}`, testGames)

	res := newTestBuilder(dataDir, nil).BuildBranch(context.Background(), "current_day")

	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrMalformedBranch)
}

func TestBuildBranch_UnsafeGameID(t *testing.T) {
	dataDir := t.TempDir()
	writeBranch(t, dataDir, "current_day",
		`[{"gameId": "../escape", "sport": "NFL", "oddsType": "standard"}]`, `[]`)

	res := newTestBuilder(dataDir, nil).BuildBranch(context.Background(), "current_day")
	require.Equal(t, models.OutcomeSucceeded, res.Outcome)

	idx := readIndex(t, filepath.Join(dataDir, "hierarchy", "current_day", "nfl", "props-index.json"))
	assert.Zero(t, idx.GameCount)
	assert.NoFileExists(t, filepath.Join(dataDir, "hierarchy", "current_day", "nfl", "escape.json"))
}

func TestRun_DefaultBranchesIsolated(t *testing.T) {
	dataDir := t.TempDir()
	writeBranch(t, dataDir, "current_day", `[oops`, testGames)
	writeBranch(t, dataDir, "tomorrow", testProps, testGames)

	results := newTestBuilder(dataDir, nil).Run(context.Background(), nil)

	require.Len(t, results, 2)
	assert.Equal(t, "current_day", results[0].Branch)
	assert.Equal(t, models.OutcomeFailed, results[0].Outcome)
	assert.Equal(t, "tomorrow", results[1].Branch)
	assert.Equal(t, models.OutcomeSucceeded, results[1].Outcome)
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"NFL", "nfl"},
		{"College Football", "college-football"},
		{"  Early  ", "early"},
		{"NBA -- 2H!", "nba-2h"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}
