package movement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/movement.report/internal/kinematics"
	"github.com/banshee-data/movement.report/internal/testutil"
	"github.com/banshee-data/movement.report/internal/tracking"
)

func TestSprintVectors(t *testing.T) {
	t.Parallel()

	derived := kinematics.Derive([]tracking.Sample{
		testutil.S("v", 0, 0, 0),
		testutil.SP("v", 1, 8, 0),  // 8 u/s with ball
		testutil.S("v", 2, 9, 0),   // 1 u/s
		testutil.S("v", 3, 9, 10),  // 10 u/s without ball
		testutil.SP("v", 4, 9, 12), // 2 u/s
	})

	vecs := SprintVectors(derived, "v", DefaultSprintThreshold)
	require.Len(t, vecs, 2)
	assert.Equal(t, SprintVector{Timestamp: testutil.At(1), X: 8, Y: 0, DX: 8, DY: 0, Speed: 8, Possession: true}, vecs[0])
	assert.Equal(t, SprintVector{Timestamp: testutil.At(3), X: 9, Y: 10, DX: 0, DY: 10, Speed: 10}, vecs[1])

	with, without := SplitByPossession(vecs)
	require.Len(t, with, 1)
	require.Len(t, without, 1)
	assert.True(t, with[0].Possession)
	assert.False(t, without[0].Possession)
}

func TestSprintVectors_None(t *testing.T) {
	t.Parallel()

	derived := kinematics.Derive(testutil.Line("w", 10, 1))
	assert.Empty(t, SprintVectors(derived, "w", DefaultSprintThreshold))
	assert.Empty(t, SprintVectors(derived, "missing", DefaultSprintThreshold))
	assert.Empty(t, SprintSegments(derived, "w", DefaultSprintThreshold))

	with, without := SplitByPossession(nil)
	assert.Empty(t, with)
	assert.Empty(t, without)
}

func TestSprintSegments_PossessionTag(t *testing.T) {
	t.Parallel()

	derived := kinematics.Derive([]tracking.Sample{
		testutil.S("s", 0, 0, 0),
		testutil.S("s", 1, 8, 0),
		testutil.SP("s", 2, 17, 0),
		testutil.S("s", 3, 26, 0),
	})
	segs := SprintSegments(derived, "s", DefaultSprintThreshold)
	require.Len(t, segs, 1)
	assert.True(t, segs[0].WithPossession)
	assert.Equal(t, 26.0, segs[0].Distance)
	assert.Equal(t, 9.0, segs[0].PeakSpeed)
	assert.Equal(t, 3, segs[0].Samples())
}

func TestSprintSegments_CountMatchesSummary(t *testing.T) {
	t.Parallel()

	var samples []tracking.Sample
	x := 0.0
	for i := 0; i < 120; i++ {
		x += float64((i*7)%13) * 0.9
		samples = append(samples, testutil.S("m", float64(i), x, 0))
	}
	derived := kinematics.Derive(samples)

	for _, th := range []float64{0, 3, 7, 9.5, 20} {
		s, err := Summarize(derived, "m", th)
		require.NoError(t, err)
		segs := SprintSegments(derived, "m", th)
		assert.Equal(t, s.SprintEventCount, len(segs), "threshold %v", th)

		var dist float64
		for _, seg := range segs {
			dist += seg.Distance
		}
		assert.InDelta(t, s.SprintDistance, dist, 1e-9)
	}
}
