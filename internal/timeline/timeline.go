// Package timeline turns sparse status samples into a continuous status timeline.
package timeline

import (
	"iter"
	"sort"
	"time"

	"storepulse/internal/model"
)

// Sample is a point observation of a store's status.
type Sample struct {
	At     time.Time
	Status model.StoreStatus
}

// Segment is a half-open range [Start, End) with a known status.
type Segment struct {
	Start  time.Time
	End    time.Time
	Status model.StoreStatus
}

// Duration returns the length of the segment.
func (s Segment) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Options tune extrapolation at the edges of the known samples.
type Options struct {
	// Horizon caps how far the first sample is held backwards and the last
	// sample forwards. Zero means no cap.
	Horizon time.Duration
}

// FromObservations converts stored observations to samples.
func FromObservations(obs []model.StatusObservation) []Sample {
	out := make([]Sample, 0, len(obs))
	for _, o := range obs {
		out = append(out, Sample{At: o.ObservedAt.UTC(), Status: o.Status})
	}
	return out
}

// Normalize returns the samples sorted by time with one sample per instant.
// When two samples share an instant, inactive wins.
func Normalize(samples []Sample) []Sample {
	out := make([]Sample, len(samples))
	copy(out, samples)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })

	n := 0
	for _, s := range out {
		if n > 0 && out[n-1].At.Equal(s.At) {
			if s.Status == model.StatusInactive {
				out[n-1].Status = model.StatusInactive
			}
			continue
		}
		out[n] = s
		n++
	}
	return out[:n]
}

// Build yields the disjoint, time-ordered segments covering [from, to].
//
// Each sample's status holds until the next sample. Before the first and after
// the last sample the nearest status is extended flat, bounded by the horizon.
// Stretches not covered by any segment are unknown. With no samples the
// sequence is empty.
func Build(samples []Sample, from, to time.Time, opts Options) iter.Seq[Segment] {
	s := Normalize(samples)

	return func(yield func(Segment) bool) {
		if len(s) == 0 || !to.After(from) {
			return
		}

		emit := func(start, end time.Time, st model.StoreStatus) bool {
			if start.Before(from) {
				start = from
			}
			if end.After(to) {
				end = to
			}
			if !end.After(start) {
				return true
			}
			return yield(Segment{Start: start, End: end, Status: st})
		}

		head := s[0]
		lead := head.At
		if opts.Horizon > 0 {
			lead = lead.Add(-opts.Horizon)
		} else if from.Before(lead) {
			lead = from
		}
		if !emit(lead, head.At, head.Status) {
			return
		}

		for i := 0; i+1 < len(s); i++ {
			if !s[i].At.Before(to) {
				return
			}
			if !emit(s[i].At, s[i+1].At, s[i].Status) {
				return
			}
		}

		tail := s[len(s)-1]
		trail := tail.At
		if opts.Horizon > 0 {
			trail = trail.Add(opts.Horizon)
		} else if to.After(trail) {
			trail = to
		}
		emit(tail.At, trail, tail.Status)
	}
}
