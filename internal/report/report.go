// Package report assembles per-entity movement reports from a loaded match
// and prints them as text.
package report

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/movement.report/internal/config"
	"github.com/banshee-data/movement.report/internal/kinematics"
	"github.com/banshee-data/movement.report/internal/monitoring"
	"github.com/banshee-data/movement.report/internal/movement"
	"github.com/banshee-data/movement.report/internal/tracking"
	"github.com/banshee-data/movement.report/internal/units"
)

// EntityReport is the full movement picture of one entity.
type EntityReport struct {
	Entity   tracking.Entity    `json:"entity"`
	Summary  movement.Summary   `json:"summary"`
	Segments []movement.Segment `json:"segments"`

	// Statistics over the defined speeds; nil when no speed is defined.
	AverageSpeed *float64 `json:"average_speed"`
	SpeedP50     *float64 `json:"speed_p50"`
	SpeedP85     *float64 `json:"speed_p85"`
	SpeedP95     *float64 `json:"speed_p95"`
}

// Build derives and summarises one entity of match.
func Build(match *tracking.Match, entityID string, cfg *config.AnalysisConfig) (*EntityReport, error) {
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	derived := kinematics.Derive(match.EntitySamples(entityID))
	return FromDerived(derived, entityFor(match, entityID), cfg.GetSprintThreshold())
}

// BuildAll reports every entity in the match roster, in roster order. The
// derivation runs once over the whole match, spread over cfg's workers.
func BuildAll(ctx context.Context, match *tracking.Match, cfg *config.AnalysisConfig) ([]*EntityReport, error) {
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	derived, err := kinematics.DeriveParallel(ctx, match.Samples, cfg.GetWorkers())
	if err != nil {
		return nil, err
	}

	byEntity := make(map[string][]kinematics.DerivedSample)
	for _, d := range derived {
		byEntity[d.EntityID] = append(byEntity[d.EntityID], d)
	}

	var entities []tracking.Entity
	if match.Roster != nil {
		entities = match.Roster.Entities()
	}
	out := make([]*EntityReport, 0, len(entities))
	for _, e := range entities {
		r, err := FromDerived(byEntity[e.ID], e, cfg.GetSprintThreshold())
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.ID, err)
		}
		out = append(out, r)
	}
	monitoring.Logf("report: built %d entity reports for match %s", len(out), match.ID)
	return out, nil
}

// FromDerived builds a report from already derived samples.
func FromDerived(derived []kinematics.DerivedSample, entity tracking.Entity, threshold float64) (*EntityReport, error) {
	s, err := movement.Summarize(derived, entity.ID, threshold)
	if err != nil {
		return nil, err
	}
	r := &EntityReport{
		Entity:   entity,
		Summary:  s,
		Segments: movement.SprintSegments(derived, entity.ID, threshold),
	}

	var speeds []float64
	for _, d := range movement.EntitySamples(derived, entity.ID) {
		if v, ok := kinematics.Value(d.Speed); ok {
			speeds = append(speeds, v)
		}
	}
	if len(speeds) > 0 {
		slices.Sort(speeds)
		r.AverageSpeed = ptr(stat.Mean(speeds, nil))
		r.SpeedP50 = ptr(stat.Quantile(0.50, stat.Empirical, speeds, nil))
		r.SpeedP85 = ptr(stat.Quantile(0.85, stat.Empirical, speeds, nil))
		r.SpeedP95 = ptr(stat.Quantile(0.95, stat.Empirical, speeds, nil))
	}
	return r, nil
}

func entityFor(match *tracking.Match, id string) tracking.Entity {
	if match.Roster != nil {
		if e, ok := match.Roster.Get(id); ok {
			return e
		}
	}
	return tracking.Entity{ID: id}
}

func ptr(v float64) *float64 { return &v }

// Format writes the movement statistics table. Distances are shown in
// lengthUnit, speeds converted to speedUnits.
func Format(w io.Writer, r *EntityReport, lengthUnit, speedUnits string) error {
	rule := strings.Repeat("=", 50)
	dist := units.LengthLabel(lengthUnit)
	speed := func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.2f %s", units.ConvertTrackingSpeed(*v, lengthUnit, speedUnits), units.SpeedLabel(speedUnits))
	}
	s := r.Summary

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "   %s\n", r.Entity.DisplayName())
	if r.Entity.Team != "" {
		fmt.Fprintf(&b, "   %s\n", r.Entity.Team)
	}
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "  Total Distance:        %.1f %s\n", s.TotalDistance, dist)
	fmt.Fprintf(&b, "  Sprint Distance:       %.1f %s\n", s.SprintDistance, dist)
	fmt.Fprintf(&b, "  Distance with Ball:    %.1f %s\n", s.DistanceWithPossession, dist)
	fmt.Fprintf(&b, "  Distance w/o Ball:     %.1f %s\n", s.DistanceWithoutPossession, dist)
	fmt.Fprintf(&b, "  Top Speed:             %s\n", speed(s.PeakSpeed))
	fmt.Fprintf(&b, "  Average Speed:         %s\n", speed(r.AverageSpeed))
	fmt.Fprintf(&b, "  Speed p85:             %s\n", speed(r.SpeedP85))
	fmt.Fprintf(&b, "  Number of Sprints:     %d\n", s.SprintEventCount)
	fmt.Fprintf(&b, "  Average Position:      (%.1f, %.1f)\n", s.MeanPosition.X, s.MeanPosition.Y)
	fmt.Fprintf(&b, "%s\n", rule)

	_, err := io.WriteString(w, b.String())
	return err
}
