package movement

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/movement.report/internal/kinematics"
)

// DefaultSprintThreshold is the speed, in length units per second, above
// which a sample counts as sprinting.
const DefaultSprintThreshold = 7.0

// ErrInvalidThreshold is returned for a NaN or infinite sprint threshold.
var ErrInvalidThreshold = errors.New("sprint threshold must be a finite number")

// Point is a planar position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Summary holds the movement statistics of one entity.
type Summary struct {
	EntityID                  string   `json:"entity_id"`
	Samples                   int      `json:"samples"`
	SprintThreshold           float64  `json:"sprint_threshold"`
	DurationSecs              float64  `json:"duration_secs"`
	TotalDistance             float64  `json:"total_distance"`
	SprintDistance            float64  `json:"sprint_distance"`
	PeakSpeed                 *float64 `json:"peak_speed"` // nil when no speed is defined
	SprintEventCount          int      `json:"sprint_event_count"`
	DistanceWithPossession    float64  `json:"distance_with_possession"`
	DistanceWithoutPossession float64  `json:"distance_without_possession"`
	MeanPosition              Point    `json:"mean_position"`
}

// IsSprinting reports whether a derived sample's speed is defined and
// strictly above threshold.
func IsSprinting(d kinematics.DerivedSample, threshold float64) bool {
	return d.Speed != nil && *d.Speed > threshold
}

// EntitySamples returns the rows of derived that belong to entityID, in
// the order they appear (time order when derived came from Derive).
func EntitySamples(derived []kinematics.DerivedSample, entityID string) []kinematics.DerivedSample {
	var out []kinematics.DerivedSample
	for _, d := range derived {
		if d.EntityID == entityID {
			out = append(out, d)
		}
	}
	return out
}

// Summarize computes the Summary of entityID from derived samples. It fails
// with *EmptyInputError when the entity has no samples; no partial summary
// is returned.
func Summarize(derived []kinematics.DerivedSample, entityID string, threshold float64) (Summary, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return Summary{}, ErrInvalidThreshold
	}
	rows := EntitySamples(derived, entityID)
	if len(rows) == 0 {
		return Summary{}, &EmptyInputError{EntityID: entityID}
	}

	s := Summary{
		EntityID:        entityID,
		Samples:         len(rows),
		SprintThreshold: threshold,
		DurationSecs:    rows[len(rows)-1].Timestamp.Sub(rows[0].Timestamp).Seconds(),
	}

	xs := make([]float64, len(rows))
	ys := make([]float64, len(rows))
	prevSprinting := false
	for i, d := range rows {
		xs[i], ys[i] = d.X, d.Y

		if dist, ok := kinematics.Value(d.Distance); ok {
			if d.Possession {
				s.DistanceWithPossession += dist
			} else {
				s.DistanceWithoutPossession += dist
			}
		}

		if speed, ok := kinematics.Value(d.Speed); ok {
			if s.PeakSpeed == nil || speed > *s.PeakSpeed {
				peak := speed
				s.PeakSpeed = &peak
			}
		}

		sprinting := IsSprinting(d, threshold)
		if sprinting {
			s.SprintDistance += *d.Distance
			if !prevSprinting {
				s.SprintEventCount++
			}
		}
		prevSprinting = sprinting
	}

	// Total is the sum of the two partitions so they add back to it exactly.
	s.TotalDistance = s.DistanceWithPossession + s.DistanceWithoutPossession
	if s.SprintDistance > s.TotalDistance {
		// summation-order rounding only
		s.SprintDistance = s.TotalDistance
	}
	s.MeanPosition = Point{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}
	return s, nil
}

// NonSprintDistance is the distance covered while not sprinting.
func (s Summary) NonSprintDistance() float64 {
	return s.TotalDistance - s.SprintDistance
}
