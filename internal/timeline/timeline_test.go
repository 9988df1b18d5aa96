package timeline

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepulse/internal/model"
)

var t0 = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func active(minutes int) Sample {
	return Sample{At: at(minutes), Status: model.StatusActive}
}

func inactive(minutes int) Sample {
	return Sample{At: at(minutes), Status: model.StatusInactive}
}

func TestBuild_HoldsEarlierStatus(t *testing.T) {
	segs := slices.Collect(Build([]Sample{active(0), inactive(30), active(45)}, at(0), at(60), Options{}))

	require.Len(t, segs, 3)
	assert.Equal(t, Segment{Start: at(0), End: at(30), Status: model.StatusActive}, segs[0])
	assert.Equal(t, Segment{Start: at(30), End: at(45), Status: model.StatusInactive}, segs[1])
	assert.Equal(t, Segment{Start: at(45), End: at(60), Status: model.StatusActive}, segs[2])
}

func TestBuild_FlatExtrapolation(t *testing.T) {
	segs := slices.Collect(Build([]Sample{inactive(30)}, at(0), at(60), Options{}))

	require.Len(t, segs, 2)
	assert.Equal(t, at(0), segs[0].Start)
	assert.Equal(t, at(60), segs[1].End)
	for _, s := range segs {
		assert.Equal(t, model.StatusInactive, s.Status)
	}
}

func TestBuild_HorizonLeavesUnknownGaps(t *testing.T) {
	segs := slices.Collect(Build([]Sample{active(30)}, at(0), at(60), Options{Horizon: 10 * time.Minute}))

	require.Len(t, segs, 2)
	assert.Equal(t, at(20), segs[0].Start)
	assert.Equal(t, at(40), segs[1].End)
}

func TestBuild_SamplesOutsideWindowBracket(t *testing.T) {
	// One sample before and one after the window; the earlier one governs it.
	segs := slices.Collect(Build([]Sample{inactive(-120), active(180)}, at(0), at(60), Options{}))

	require.Len(t, segs, 1)
	assert.Equal(t, Segment{Start: at(0), End: at(60), Status: model.StatusInactive}, segs[0])
}

func TestBuild_NoSamplesIsUnknown(t *testing.T) {
	assert.Empty(t, slices.Collect(Build(nil, at(0), at(60), Options{})))
}

func TestBuild_EmptyWindow(t *testing.T) {
	assert.Empty(t, slices.Collect(Build([]Sample{active(0)}, at(10), at(10), Options{})))
}

func TestBuild_UnsortedInputAndTies(t *testing.T) {
	samples := []Sample{active(40), inactive(10), active(10), active(0)}
	segs := slices.Collect(Build(samples, at(0), at(60), Options{}))

	require.Len(t, segs, 3)
	assert.Equal(t, model.StatusActive, segs[0].Status)
	assert.Equal(t, Segment{Start: at(10), End: at(40), Status: model.StatusInactive}, segs[1])
	assert.Equal(t, model.StatusActive, segs[2].Status)
}

func TestBuild_SegmentsAreDisjointAndCoverWindow(t *testing.T) {
	samples := []Sample{active(-5), inactive(7), active(13), inactive(29), active(41), inactive(58)}
	var total time.Duration
	var prev *Segment
	for seg := range Build(samples, at(0), at(60), Options{}) {
		if prev != nil {
			assert.Equal(t, prev.End, seg.Start)
		}
		total += seg.Duration()
		s := seg
		prev = &s
	}
	assert.Equal(t, time.Hour, total)
}

func TestBuild_StopsWhenConsumerStops(t *testing.T) {
	samples := []Sample{active(0), inactive(10), active(20), inactive(30)}
	n := 0
	for range Build(samples, at(0), at(60), Options{}) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := []Sample{active(20), inactive(10)}
	out := Normalize(in)
	assert.Equal(t, at(20), in[0].At)
	assert.Equal(t, at(10), out[0].At)
}

func TestFromObservations(t *testing.T) {
	loc := time.FixedZone("X", 3600)
	got := FromObservations([]model.StatusObservation{
		{StoreID: "s1", ObservedAt: t0.In(loc), Status: model.StatusActive},
	})
	require.Len(t, got, 1)
	assert.Equal(t, time.UTC, got[0].At.Location())
	assert.True(t, got[0].At.Equal(t0))
}
