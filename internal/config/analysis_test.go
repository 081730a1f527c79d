package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/movement.report/internal/movement"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	t.Parallel()

	c := EmptyAnalysisConfig()
	assert.Equal(t, 7.0, c.GetSprintThreshold())
	assert.Equal(t, movement.DefaultSprintThreshold, c.GetSprintThreshold())
	assert.Equal(t, "m", c.GetLengthUnit())
	assert.Equal(t, "mps", c.GetSpeedUnits())
	assert.Equal(t, 105.0, c.GetPitchLength())
	assert.Equal(t, 68.0, c.GetPitchWidth())
	assert.Equal(t, 30, c.GetHeatmapBinsX())
	assert.Equal(t, 20, c.GetHeatmapBinsY())
	assert.Equal(t, 0, c.GetWorkers())
	assert.Equal(t, 1.0, c.GetSprintVectorScale())
	assert.True(t, c.GetMemoizeLoads())
	assert.NoError(t, c.Validate())
}

func TestDefaultsFileMatchesAccessors(t *testing.T) {
	t.Parallel()

	fromFile := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultAnalysisConfig(), fromFile); diff != "" {
		t.Errorf("defaults file differs from accessor defaults (-want +got):\n%s", diff)
	}
}

func TestLoadAnalysisConfig_PartialJSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "partial.json", `{"sprint_threshold": 5.5, "length_unit": "yd"}`)
	c, err := LoadAnalysisConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5.5, c.GetSprintThreshold())
	assert.Equal(t, "yd", c.GetLengthUnit())
	assert.Equal(t, 30, c.GetHeatmapBinsX(), "unset fields keep defaults")
	assert.Nil(t, c.PitchLength)
}

func TestLoadAnalysisConfig_YAML(t *testing.T) {
	t.Parallel()

	body := "sprint_threshold: 6.25\nspeed_units: kmph\nheatmap_bins_x: 12\nheatmap_bins_y: 8\nmemoize_loads: false\n"
	for _, name := range []string{"cfg.yaml", "cfg.yml"} {
		c, err := LoadAnalysisConfig(writeConfig(t, name, body))
		require.NoError(t, err, name)
		assert.Equal(t, 6.25, c.GetSprintThreshold())
		assert.Equal(t, "kmph", c.GetSpeedUnits())
		assert.Equal(t, 12, c.GetHeatmapBinsX())
		assert.Equal(t, 8, c.GetHeatmapBinsY())
		assert.False(t, c.GetMemoizeLoads())
	}
}

func TestLoadAnalysisConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"bad extension", "cfg.toml", "x = 1", "extension"},
		{"malformed json", "cfg.json", `{"sprint_threshold":`, "parse config JSON"},
		{"malformed yaml", "cfg.yaml", "sprint_threshold: [", "parse config YAML"},
		{"negative threshold", "cfg.json", `{"sprint_threshold": -1}`, "SprintThreshold"},
		{"zero bins", "cfg.json", `{"heatmap_bins_x": 0}`, "HeatmapBinsX"},
		{"non-positive pitch", "cfg.yaml", "pitch_width: 0\n", "PitchWidth"},
		{"unknown length unit", "cfg.json", `{"length_unit": "furlong"}`, "length_unit"},
		{"unknown speed unit", "cfg.json", `{"speed_units": "knots"}`, "speed_units"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadAnalysisConfig(writeConfig(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadAnalysisConfig_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadAnalysisConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat")
}

func TestLoadAnalysisConfig_TooLarge(t *testing.T) {
	t.Parallel()

	body := `{"sprint_threshold": 7` + strings.Repeat(" ", 1024*1024) + `}`
	_, err := LoadAnalysisConfig(writeConfig(t, "big.json", body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestMerge(t *testing.T) {
	t.Parallel()

	base := DefaultAnalysisConfig()
	override := &AnalysisConfig{SprintThreshold: ptrFloat64(4), Workers: ptrInt(3)}

	merged := base.Merge(override)
	assert.Equal(t, 4.0, merged.GetSprintThreshold())
	assert.Equal(t, 3, merged.GetWorkers())
	assert.Equal(t, base.GetPitchLength(), merged.GetPitchLength())
	assert.Equal(t, 7.0, base.GetSprintThreshold(), "base is not mutated")

	same := base.Merge(nil)
	if diff := cmp.Diff(base, same); diff != "" {
		t.Errorf("Merge(nil) changed config:\n%s", diff)
	}
}
