package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/movement.report/internal/fsutil"
	"github.com/banshee-data/movement.report/internal/heatmap"
	"github.com/banshee-data/movement.report/internal/kinematics"
	"github.com/banshee-data/movement.report/internal/movement"
	"github.com/banshee-data/movement.report/internal/testutil"
	"github.com/banshee-data/movement.report/internal/tracking"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func fixture(t *testing.T) (*heatmap.Grid, movement.Summary, []movement.SprintVector) {
	t.Helper()
	samples := []tracking.Sample{
		testutil.S("9", 0, -10, 0),
		testutil.SP("9", 1, -2, 0),
		testutil.SP("9", 2, 7, 1),
		testutil.S("9", 3, 8, 1),
		testutil.S("9", 4, 8, 11),
	}
	derived := kinematics.Derive(samples)
	s, err := movement.Summarize(derived, "9", movement.DefaultSprintThreshold)
	require.NoError(t, err)
	g, err := heatmap.Occupancy(samples, heatmap.DefaultPitch, 30, 20)
	require.NoError(t, err)
	return g, s, movement.SprintVectors(derived, "9", movement.DefaultSprintThreshold)
}

func TestHeatMapPlot_WritePNG(t *testing.T) {
	t.Parallel()

	g, _, _ := fixture(t)
	p, err := HeatMapPlot("Player 9", g, "m")
	require.NoError(t, err)
	assert.Equal(t, "X (m)", p.X.Label.Text)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(p, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestHeatMapPlot_EmptyGrid(t *testing.T) {
	t.Parallel()

	g, err := heatmap.Occupancy(nil, heatmap.DefaultPitch, 30, 20)
	require.NoError(t, err)
	p, err := HeatMapPlot("empty", g, "yd")
	require.NoError(t, err)
	assert.Equal(t, "Y (yd)", p.Y.Label.Text)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(p, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestSprintMapPlot_SavePNG(t *testing.T) {
	t.Parallel()

	_, _, vecs := fixture(t)
	require.Len(t, vecs, 3)

	p, err := SprintMapPlot("Sprints", heatmap.DefaultPitch, vecs, 1, "m")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "sprints.png")
	require.NoError(t, SavePNG(fsutil.OSFileSystem{}, p, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, SavePNG(mfs, p, "/plots/derby_9_sprints.png"))
	data, err = mfs.ReadFile("/plots/derby_9_sprints.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestSprintMapPlot_NoVectors(t *testing.T) {
	t.Parallel()

	p, err := SprintMapPlot("none", heatmap.DefaultPitch, nil, 1, "m")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WritePNG(p, &buf))
}

func TestDashboardPage(t *testing.T) {
	t.Parallel()

	g, s, vecs := fixture(t)
	var buf bytes.Buffer
	require.NoError(t, DashboardPage(&buf, Dashboard{
		Title:      "Player 9 (#9) - CF",
		Summary:    s,
		Grid:       g,
		Vectors:    vecs,
		LengthUnit: "m",
		SpeedUnits: "kmph",
	}))

	html := buf.String()
	assert.True(t, strings.Contains(html, "<html"), "renders a full page")
	for _, want := range []string{"Occupancy", "Sprints", "Distance", "with ball", "without ball", "#32FE6B", "#E5BA21"} {
		assert.Contains(t, html, want)
	}
}

func TestDashboardPage_NoGrid(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, DashboardPage(&buf, Dashboard{Title: "x", Summary: movement.Summary{EntityID: "x"}}))
	assert.NotContains(t, buf.String(), "off-pitch")
	assert.Contains(t, buf.String(), "Distance")
}
