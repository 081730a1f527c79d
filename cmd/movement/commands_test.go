package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/movement.report/internal/db"
	"github.com/banshee-data/movement.report/internal/monitoring"
	"github.com/banshee-data/movement.report/internal/testutil"
	"github.com/banshee-data/movement.report/internal/tracking"
)

// writeMatch writes a two-player export: "9" accelerates into a sprint with
// the ball, "4" jogs.
func writeMatch(t *testing.T, dir, name string) string {
	t.Helper()
	monitoring.SetLogger(nil)
	samples := []tracking.Sample{
		testutil.S("9", 0, 0, 0),
		testutil.S("4", 0, -10, 5),
		testutil.SP("9", 1, 8, 0),
		testutil.S("4", 1, -8, 5),
		testutil.SP("9", 2, 16, 0),
		testutil.S("4", 2, -6, 5),
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(testutil.MatchCSV(samples)), 0o644))
	return path
}

func TestRunStats_AllEntities(t *testing.T) {
	path := writeMatch(t, t.TempDir(), "derby.csv")

	var out bytes.Buffer
	require.NoError(t, runStats([]string{path}, &out))

	got := out.String()
	assert.Equal(t, 2, strings.Count(got, "Total Distance:"))
	assert.Less(t, strings.Index(got, "Player 9"), strings.Index(got, "Player 4"), "roster order")
	assert.Contains(t, got, "Total Distance:        16.0 m")
	assert.Contains(t, got, "Number of Sprints:     1")
}

func TestRunStats_OneEntityWithOverrides(t *testing.T) {
	path := writeMatch(t, t.TempDir(), "derby.csv")

	var out bytes.Buffer
	require.NoError(t, runStats([]string{"--entity", "9", "--threshold", "9", "--units", "kmph", path}, &out))

	got := out.String()
	assert.NotContains(t, got, "Player 4")
	assert.Contains(t, got, "Number of Sprints:     0")
	assert.Contains(t, got, "Top Speed:             28.80")
}

func TestRunStats_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeMatch(t, dir, "derby.csv")
	badCfg := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badCfg, []byte(`{"length_unit": "furlong"}`), 0o644))

	tests := []struct {
		name string
		args []string
	}{
		{"no file", nil},
		{"two files", []string{path, path}},
		{"unknown entity", []string{"--entity", "77", path}},
		{"bad units", []string{"--units", "knots", path}},
		{"nan threshold", []string{"--threshold", "NaN", path}},
		{"negative threshold", []string{"--threshold", "-1", path}},
		{"invalid config", []string{"--config", badCfg, path}},
		{"missing export", []string{filepath.Join(dir, "nope.csv")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, runStats(tt.args, &bytes.Buffer{}))
		})
	}
}

func TestRunStats_Help(t *testing.T) {
	err := runStats([]string{"-h"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestRunStats_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeMatch(t, dir, "derby.csv")
	cfg := filepath.Join(dir, "analysis.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("sprint_threshold: 20\nspeed_units: mph\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, runStats([]string{"--config", cfg, "--entity", "9", path}, &out))
	assert.Contains(t, out.String(), "Number of Sprints:     0")
	assert.Contains(t, out.String(), "mph")
}

func TestRunPlot(t *testing.T) {
	dir := t.TempDir()
	path := writeMatch(t, dir, "derby.csv")
	outDir := filepath.Join(dir, "plots")

	var out bytes.Buffer
	require.NoError(t, runPlot([]string{"--out", outDir, "--entity", "9", path}, &out))

	for _, name := range []string{"derby_9_heatmap.png", "derby_9_sprints.png"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), name)
		assert.Contains(t, out.String(), name)
	}
}

func TestRunPlot_RejectsOutsideDir(t *testing.T) {
	path := writeMatch(t, t.TempDir(), "derby.csv")
	err := runPlot([]string{"--out", "/etc/movement-plots", path}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunImport(t *testing.T) {
	dir := t.TempDir()
	first := writeMatch(t, dir, "derby.csv")
	second := writeMatch(t, dir, "cup.csv")
	dbPath := filepath.Join(dir, "movement.db")

	var out bytes.Buffer
	require.NoError(t, runImport([]string{"--db", dbPath, "--record-run", "--threshold", "5", first, second}, &out))
	assert.Contains(t, out.String(), "imported derby: 6 samples, 2 entities")
	assert.Contains(t, out.String(), "imported cup:")
	assert.Equal(t, 2, strings.Count(out.String(), "recorded run"))

	store, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer store.Close()

	list, err := store.ListMatches(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)

	run, summaries, err := store.LatestSummaries(context.Background(), "derby")
	require.NoError(t, err)
	assert.Equal(t, 5.0, run.SprintThreshold)
	require.Len(t, summaries, 2)
	assert.Equal(t, "9", summaries[0].EntityID)
	assert.Equal(t, 1, summaries[0].SprintEventCount)
}

func TestRunImport_MatchIDOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeMatch(t, dir, "export-0001.csv")
	dbPath := filepath.Join(dir, "movement.db")

	require.NoError(t, runImport([]string{"--db", dbPath, "--match-id", "derby", path}, &bytes.Buffer{}))

	store, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer store.Close()
	m, err := store.LoadMatch(context.Background(), "derby")
	require.NoError(t, err)
	assert.Len(t, m.Samples, 6)

	err = runImport([]string{"--db", dbPath, "--match-id", "x", path, path}, &bytes.Buffer{})
	assert.Error(t, err)
	assert.Error(t, runImport([]string{"--db", dbPath}, &bytes.Buffer{}))
}
