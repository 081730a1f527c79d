package kinematics

import (
	"context"
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/movement.report/internal/tracking"
)

// DerivedSample is a tracking sample augmented with motion relative to the
// previous sample of the same entity. Nil fields are undefined.
type DerivedSample struct {
	tracking.Sample

	// Index is the position of the sample in the slice passed to Derive.
	Index int

	DX       *float64
	DY       *float64
	DT       *float64 // seconds
	Distance *float64
	Speed    *float64 // length units per second
}

// Partition groups sample indices by entity. Partitions are returned in
// order of each entity's first appearance, and each partition is stably
// sorted by timestamp so equal timestamps keep their input order.
func Partition(samples []tracking.Sample) [][]int {
	pos := make(map[string]int)
	var parts [][]int
	for i, s := range samples {
		p, ok := pos[s.EntityID]
		if !ok {
			p = len(parts)
			pos[s.EntityID] = p
			parts = append(parts, nil)
		}
		parts[p] = append(parts[p], i)
	}
	for _, idx := range parts {
		slices.SortStableFunc(idx, func(a, b int) int {
			return samples[a].Timestamp.Compare(samples[b].Timestamp)
		})
	}
	return parts
}

// Derive computes derived samples for every input sample. The output holds
// one row per input sample: entities in order of first appearance, each
// entity's rows in timestamp order. Empty input yields an empty slice.
func Derive(samples []tracking.Sample) []DerivedSample {
	out := make([]DerivedSample, 0, len(samples))
	for _, idx := range Partition(samples) {
		out = append(out, scan(samples, idx)...)
	}
	return out
}

// DeriveParallel produces the same output as Derive, scanning partitions
// on up to workers goroutines (<= 0 means GOMAXPROCS). The only error
// returned is ctx's.
func DeriveParallel(ctx context.Context, samples []tracking.Sample, workers int) ([]DerivedSample, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	parts := Partition(samples)
	results := make([][]DerivedSample, len(parts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, idx := range parts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = scan(samples, idx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]DerivedSample, 0, len(samples))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// scan walks one time-ordered partition.
func scan(samples []tracking.Sample, idx []int) []DerivedSample {
	out := make([]DerivedSample, len(idx))
	for k, i := range idx {
		cur := samples[i]
		out[k] = DerivedSample{Sample: cur, Index: i}
		if k == 0 {
			continue
		}
		prev := samples[idx[k-1]]

		dx := cur.X - prev.X
		dy := cur.Y - prev.Y
		dt := cur.Timestamp.Sub(prev.Timestamp).Seconds()
		dist := math.Hypot(dx, dy)

		d := &out[k]
		d.DX = &dx
		d.DY = &dy
		d.DT = &dt
		d.Distance = &dist
		if dt > 0 {
			speed := dist / dt
			d.Speed = &speed
		}
	}
	return out
}

// Value dereferences an optional value, reporting whether it was defined.
func Value(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
