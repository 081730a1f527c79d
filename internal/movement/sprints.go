package movement

import (
	"time"

	"github.com/banshee-data/movement.report/internal/kinematics"
)

// Segment is a contiguous run of sprinting samples of one entity.
// StartIndex and EndIndex are inclusive positions within the entity's own
// time-ordered sequence.
type Segment struct {
	StartIndex     int       `json:"start_index"`
	EndIndex       int       `json:"end_index"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Distance       float64   `json:"distance"`
	PeakSpeed      float64   `json:"peak_speed"`
	WithPossession bool      `json:"with_possession"` // ball held at any sample of the run
}

// Samples is the number of sprinting samples in the segment.
func (s Segment) Samples() int { return s.EndIndex - s.StartIndex + 1 }

// SprintSegments splits the entity's sprinting samples into contiguous
// runs. A run starts exactly where Summarize counts a sprint event, so the
// number of segments always equals Summary.SprintEventCount.
func SprintSegments(derived []kinematics.DerivedSample, entityID string, threshold float64) []Segment {
	rows := EntitySamples(derived, entityID)

	var segs []Segment
	var cur *Segment
	for i, d := range rows {
		if !IsSprinting(d, threshold) {
			cur = nil
			continue
		}
		if cur == nil {
			segs = append(segs, Segment{StartIndex: i, Start: d.Timestamp})
			cur = &segs[len(segs)-1]
		}
		cur.EndIndex = i
		cur.End = d.Timestamp
		cur.Distance += *d.Distance
		if *d.Speed > cur.PeakSpeed {
			cur.PeakSpeed = *d.Speed
		}
		cur.WithPossession = cur.WithPossession || d.Possession
	}
	return segs
}

// SprintVector is one sprinting sample drawn as an arrow from the sample's
// position along its displacement.
type SprintVector struct {
	Timestamp  time.Time `json:"timestamp"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	DX         float64   `json:"dx"`
	DY         float64   `json:"dy"`
	Speed      float64   `json:"speed"`
	Possession bool      `json:"possession"`
}

// SprintVectors filters the entity's samples to those above threshold and
// tags each with the possession flag at that instant.
func SprintVectors(derived []kinematics.DerivedSample, entityID string, threshold float64) []SprintVector {
	var out []SprintVector
	for _, d := range EntitySamples(derived, entityID) {
		if !IsSprinting(d, threshold) {
			continue
		}
		out = append(out, SprintVector{
			Timestamp:  d.Timestamp,
			X:          d.X,
			Y:          d.Y,
			DX:         *d.DX,
			DY:         *d.DY,
			Speed:      *d.Speed,
			Possession: d.Possession,
		})
	}
	return out
}

// SplitByPossession separates vectors into in-possession and
// out-of-possession sets, preserving order.
func SplitByPossession(vectors []SprintVector) (with, without []SprintVector) {
	for _, v := range vectors {
		if v.Possession {
			with = append(with, v)
		} else {
			without = append(without, v)
		}
	}
	return with, without
}
