// Package uptime measures how long each store was up or down during its
// business hours over trailing windows.
package uptime

import (
	"context"
	"fmt"
	"time"

	"storepulse/internal/model"
	"storepulse/internal/schedule"
	"storepulse/internal/timeline"
)

// Source is the read side the aggregator needs from persistence.
type Source interface {
	BusinessHours(ctx context.Context, storeID string) ([]model.BusinessHour, error)
	LatestObservation(ctx context.Context, storeID string) (time.Time, bool, error)
	ObservationsAround(ctx context.Context, storeID string, from, to time.Time) ([]model.StatusObservation, error)
}

// Trailing window lengths.
const (
	LastHour = time.Hour
	LastDay  = 24 * time.Hour
	LastWeek = 7 * 24 * time.Hour
)

// Totals is the split of one window.
type Totals struct {
	Uptime   time.Duration
	Downtime time.Duration
	// Business is the open time inside the window; Uptime+Downtime never exceeds it.
	Business time.Duration
}

// UptimeHours returns the uptime in hours.
func (t Totals) UptimeHours() float64 { return t.Uptime.Hours() }

// DowntimeHours returns the downtime in hours.
func (t Totals) DowntimeHours() float64 { return t.Downtime.Hours() }

// Result is the computed report of one store.
type Result struct {
	StoreID string
	Anchor  time.Time
	// Observed is false when the store has no observations at all.
	Observed bool
	LastHour Totals
	LastDay  Totals
	LastWeek Totals
}

// Entry converts the result into the persisted row of a report.
func (r Result) Entry(reportID string) model.ReportEntry {
	return model.ReportEntry{
		ReportID:         reportID,
		StoreID:          r.StoreID,
		UptimeLastHour:   r.LastHour.UptimeHours(),
		UptimeLastDay:    r.LastDay.UptimeHours(),
		UptimeLastWeek:   r.LastWeek.UptimeHours(),
		DowntimeLastHour: r.LastHour.DowntimeHours(),
		DowntimeLastDay:  r.LastDay.DowntimeHours(),
		DowntimeLastWeek: r.LastWeek.DowntimeHours(),
	}
}

// Aggregator computes per-store results. It holds no per-store state and is
// safe for concurrent use.
type Aggregator struct {
	src  Source
	dir  *schedule.Directory
	opts timeline.Options
}

// NewAggregator creates an aggregator reading from src and resolving zones through dir.
func NewAggregator(src Source, dir *schedule.Directory, opts timeline.Options) *Aggregator {
	return &Aggregator{src: src, dir: dir, opts: opts}
}

// ComputeLatest anchors the windows at the store's newest observation.
func (a *Aggregator) ComputeLatest(ctx context.Context, storeID string) (Result, error) {
	anchor, ok, err := a.src.LatestObservation(ctx, storeID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{StoreID: storeID}, nil
	}
	return a.Compute(ctx, storeID, anchor)
}

// Compute measures the three trailing windows ending at anchor.
func (a *Aggregator) Compute(ctx context.Context, storeID string, anchor time.Time) (Result, error) {
	anchor = anchor.UTC()

	rules, err := a.src.BusinessHours(ctx, storeID)
	if err != nil {
		return Result{}, err
	}
	hours, err := schedule.NewHours(rules)
	if err != nil {
		return Result{}, fmt.Errorf("business hours: %w", err)
	}

	obs, err := a.src.ObservationsAround(ctx, storeID, anchor.Add(-LastWeek), anchor)
	if err != nil {
		return Result{}, err
	}
	samples := timeline.FromObservations(obs)
	loc := a.dir.Location(storeID)

	measure := func(window time.Duration) Totals {
		open := hours.OpenIntervals(loc, anchor.Add(-window), anchor)
		return Sum(open, samples, a.opts)
	}

	return Result{
		StoreID:  storeID,
		Anchor:   anchor,
		Observed: len(samples) > 0,
		LastHour: measure(LastHour),
		LastDay:  measure(LastDay),
		LastWeek: measure(LastWeek),
	}, nil
}

// Sum intersects the status timeline with the open intervals, which must be
// sorted and disjoint.
func Sum(open []schedule.Interval, samples []timeline.Sample, opts timeline.Options) Totals {
	t := Totals{Business: schedule.Total(open)}
	if len(open) == 0 {
		return t
	}

	i := 0
	for seg := range timeline.Build(samples, open[0].Start, open[len(open)-1].End, opts) {
		for i < len(open) && !open[i].End.After(seg.Start) {
			i++
		}
		for j := i; j < len(open) && open[j].Start.Before(seg.End); j++ {
			start, end := open[j].Start, open[j].End
			if seg.Start.After(start) {
				start = seg.Start
			}
			if seg.End.Before(end) {
				end = seg.End
			}
			if !end.After(start) {
				continue
			}
			switch seg.Status {
			case model.StatusActive:
				t.Uptime += end.Sub(start)
			case model.StatusInactive:
				t.Downtime += end.Sub(start)
			}
		}
	}
	return t
}
