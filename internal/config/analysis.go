package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/movement.report/internal/movement"
	"github.com/banshee-data/movement.report/internal/units"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

// AnalysisConfig holds the parameters of a movement analysis. Every field
// is optional; the Get* accessors supply defaults for unset fields, so a
// partial file only overrides what it names.
type AnalysisConfig struct {
	// Speed above which a sample is sprinting, in LengthUnit per second.
	SprintThreshold *float64 `json:"sprint_threshold,omitempty" yaml:"sprint_threshold,omitempty" validate:"omitempty,gte=0"`
	// Unit of the x/y tracking coordinates: m, yd or ft.
	LengthUnit *string `json:"length_unit,omitempty" yaml:"length_unit,omitempty"`
	// Display units for speeds: mps, mph, kmph or kph.
	SpeedUnits *string `json:"speed_units,omitempty" yaml:"speed_units,omitempty"`

	// Pitch geometry in LengthUnit, origin at the centre spot.
	PitchLength *float64 `json:"pitch_length,omitempty" yaml:"pitch_length,omitempty" validate:"omitempty,gt=0"`
	PitchWidth  *float64 `json:"pitch_width,omitempty" yaml:"pitch_width,omitempty" validate:"omitempty,gt=0"`

	// Occupancy heat map resolution.
	HeatmapBinsX *int `json:"heatmap_bins_x,omitempty" yaml:"heatmap_bins_x,omitempty" validate:"omitempty,min=1,max=1000"`
	HeatmapBinsY *int `json:"heatmap_bins_y,omitempty" yaml:"heatmap_bins_y,omitempty" validate:"omitempty,min=1,max=1000"`

	// Entity partitions derived concurrently; 0 means GOMAXPROCS.
	Workers *int `json:"workers,omitempty" yaml:"workers,omitempty" validate:"omitempty,gte=0"`

	// Length multiplier applied to sprint arrows on the sprint map.
	SprintVectorScale *float64 `json:"sprint_vector_scale,omitempty" yaml:"sprint_vector_scale,omitempty" validate:"omitempty,gt=0"`

	// Reuse parsed exports whose size and mtime are unchanged.
	MemoizeLoads *bool `json:"memoize_loads,omitempty" yaml:"memoize_loads,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }

// EmptyAnalysisConfig returns an AnalysisConfig with all fields set to nil.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// DefaultAnalysisConfig returns a config with every field populated with
// its default value.
func DefaultAnalysisConfig() *AnalysisConfig {
	e := EmptyAnalysisConfig()
	return &AnalysisConfig{
		SprintThreshold:   ptrFloat64(e.GetSprintThreshold()),
		LengthUnit:        ptrString(e.GetLengthUnit()),
		SpeedUnits:        ptrString(e.GetSpeedUnits()),
		PitchLength:       ptrFloat64(e.GetPitchLength()),
		PitchWidth:        ptrFloat64(e.GetPitchWidth()),
		HeatmapBinsX:      ptrInt(e.GetHeatmapBinsX()),
		HeatmapBinsY:      ptrInt(e.GetHeatmapBinsY()),
		Workers:           ptrInt(e.GetWorkers()),
		SprintVectorScale: ptrFloat64(e.GetSprintVectorScale()),
		MemoizeLoads:      ptrBool(e.GetMemoizeLoads()),
	}
}

// LoadAnalysisConfig loads an AnalysisConfig from a .json, .yaml or .yml
// file. The file must be under the max file size. Fields omitted from the
// file retain their default values, so partial configs are safe.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration values are valid.
func (c *AnalysisConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.LengthUnit != nil && !units.IsValidLength(*c.LengthUnit) {
		return fmt.Errorf("length_unit must be one of %s, got %q", units.GetValidLengthUnitsString(), *c.LengthUnit)
	}
	if c.SpeedUnits != nil && !units.IsValid(*c.SpeedUnits) {
		return fmt.Errorf("speed_units must be one of %s, got %q", units.GetValidUnitsString(), *c.SpeedUnits)
	}
	return nil
}

// Merge returns a copy of c with every field set in o taking precedence.
func (c *AnalysisConfig) Merge(o *AnalysisConfig) *AnalysisConfig {
	out := *c
	if o == nil {
		return &out
	}
	if o.SprintThreshold != nil {
		out.SprintThreshold = o.SprintThreshold
	}
	if o.LengthUnit != nil {
		out.LengthUnit = o.LengthUnit
	}
	if o.SpeedUnits != nil {
		out.SpeedUnits = o.SpeedUnits
	}
	if o.PitchLength != nil {
		out.PitchLength = o.PitchLength
	}
	if o.PitchWidth != nil {
		out.PitchWidth = o.PitchWidth
	}
	if o.HeatmapBinsX != nil {
		out.HeatmapBinsX = o.HeatmapBinsX
	}
	if o.HeatmapBinsY != nil {
		out.HeatmapBinsY = o.HeatmapBinsY
	}
	if o.Workers != nil {
		out.Workers = o.Workers
	}
	if o.SprintVectorScale != nil {
		out.SprintVectorScale = o.SprintVectorScale
	}
	if o.MemoizeLoads != nil {
		out.MemoizeLoads = o.MemoizeLoads
	}
	return &out
}

// GetSprintThreshold returns the sprint_threshold value or the default.
func (c *AnalysisConfig) GetSprintThreshold() float64 {
	if c.SprintThreshold == nil {
		return movement.DefaultSprintThreshold
	}
	return *c.SprintThreshold
}

// GetLengthUnit returns the length_unit value or the default.
func (c *AnalysisConfig) GetLengthUnit() string {
	if c.LengthUnit == nil || *c.LengthUnit == "" {
		return units.Meters
	}
	return *c.LengthUnit
}

// GetSpeedUnits returns the speed_units value or the default.
func (c *AnalysisConfig) GetSpeedUnits() string {
	if c.SpeedUnits == nil || *c.SpeedUnits == "" {
		return units.MPS
	}
	return *c.SpeedUnits
}

// GetPitchLength returns the pitch_length value or the default.
func (c *AnalysisConfig) GetPitchLength() float64 {
	if c.PitchLength == nil {
		return 105.0
	}
	return *c.PitchLength
}

// GetPitchWidth returns the pitch_width value or the default.
func (c *AnalysisConfig) GetPitchWidth() float64 {
	if c.PitchWidth == nil {
		return 68.0
	}
	return *c.PitchWidth
}

// GetHeatmapBinsX returns the heatmap_bins_x value or the default.
func (c *AnalysisConfig) GetHeatmapBinsX() int {
	if c.HeatmapBinsX == nil {
		return 30
	}
	return *c.HeatmapBinsX
}

// GetHeatmapBinsY returns the heatmap_bins_y value or the default.
func (c *AnalysisConfig) GetHeatmapBinsY() int {
	if c.HeatmapBinsY == nil {
		return 20
	}
	return *c.HeatmapBinsY
}

// GetWorkers returns the workers value or the default.
func (c *AnalysisConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetSprintVectorScale returns the sprint_vector_scale value or the default.
func (c *AnalysisConfig) GetSprintVectorScale() float64 {
	if c.SprintVectorScale == nil {
		return 1.0
	}
	return *c.SprintVectorScale
}

// GetMemoizeLoads returns the memoize_loads value or the default.
func (c *AnalysisConfig) GetMemoizeLoads() bool {
	if c.MemoizeLoads == nil {
		return true
	}
	return *c.MemoizeLoads
}
