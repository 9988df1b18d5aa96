// Package jobs runs report jobs: it issues report ids, hands them to a
// background dispatcher and fans each job out over every known store.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storepulse/config"
	"storepulse/internal/model"
	"storepulse/internal/schedule"
	"storepulse/internal/store"
	"storepulse/internal/timeline"
	"storepulse/internal/uptime"
)

// Handler runs one report job.
type Handler func(ctx context.Context, reportID string) error

// Dispatcher hands a report id to a background worker.
type Dispatcher interface {
	Submit(ctx context.Context, reportID string) error
}

// Notifier is told when a job reaches a terminal state.
type Notifier interface {
	Notify(reportID string, status model.ReportStatus)
}

// Orchestrator creates report jobs and computes them.
type Orchestrator struct {
	store      store.Store
	dispatcher Dispatcher
	notifier   Notifier
	logger     *zap.Logger

	workers  int
	fallback string
	opts     timeline.Options
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator. A dispatcher must be set with
// SetDispatcher before Trigger is called.
func NewOrchestrator(st store.Store, cfg config.ReportConfig, logger *zap.Logger) *Orchestrator {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		store:    st,
		logger:   logger,
		workers:  workers,
		fallback: cfg.DefaultTimezone,
		opts:     timeline.Options{Horizon: cfg.Horizon},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetDispatcher sets where triggered jobs are sent.
func (o *Orchestrator) SetDispatcher(d Dispatcher) { o.dispatcher = d }

// SetNotifier sets who is told about finished jobs.
func (o *Orchestrator) SetNotifier(n Notifier) { o.notifier = n }

// Trigger persists a new Running job and submits it for background
// computation. It returns without waiting for the job.
func (o *Orchestrator) Trigger(ctx context.Context) (string, error) {
	if o.dispatcher == nil {
		return "", errors.New("no dispatcher configured")
	}

	reportID := uuid.NewString()
	job := &model.ReportJob{
		ReportID:  reportID,
		Status:    model.ReportRunning,
		CreatedAt: o.now(),
	}
	if err := o.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create report job: %w", err)
	}

	if err := o.dispatcher.Submit(ctx, reportID); err != nil {
		o.finish(ctx, reportID, store.JobOutcome{
			Status:     model.ReportFailed,
			Error:      err.Error(),
			FinishedAt: o.now(),
		})
		return "", fmt.Errorf("failed to dispatch report %s: %w", reportID, err)
	}

	o.logger.Info("report triggered", zap.String("report_id", reportID))
	return reportID, nil
}

// Run computes every store of a job and writes its terminal state. Per-store
// failures are logged and skipped; only a failure to load the roster fails the
// whole job.
func (o *Orchestrator) Run(ctx context.Context, reportID string) error {
	log := o.logger.With(zap.String("report_id", reportID))
	started := o.now()

	ids, agg, err := o.prepare(ctx)
	if err != nil {
		ierr := &InitError{Err: err}
		log.Error("report failed", zap.Error(ierr))
		o.finish(ctx, reportID, store.JobOutcome{
			Status:     model.ReportFailed,
			Error:      ierr.Error(),
			FinishedAt: o.now(),
		})
		return ierr
	}

	var skipped atomic.Int64
	var g errgroup.Group
	g.SetLimit(o.workers)
	for _, storeID := range ids {
		g.Go(func() error {
			if err := o.computeStore(ctx, agg, reportID, storeID); err != nil {
				skipped.Add(1)
				log.Warn("skipping store", zap.String("store_id", storeID), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	outcome := store.JobOutcome{
		Status:        model.ReportComplete,
		StoresTotal:   len(ids),
		StoresSkipped: int(skipped.Load()),
		FinishedAt:    o.now(),
	}
	o.finish(ctx, reportID, outcome)

	log.Info("report complete",
		zap.Int("stores", outcome.StoresTotal),
		zap.Int("skipped", outcome.StoresSkipped),
		zap.Duration("elapsed", outcome.FinishedAt.Sub(started)))
	return nil
}

func (o *Orchestrator) prepare(ctx context.Context) ([]string, *uptime.Aggregator, error) {
	ids, err := o.store.StoreIDs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load store roster: %w", err)
	}
	zones, err := o.store.Timezones(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load timezones: %w", err)
	}
	dir, err := schedule.NewDirectory(zones, o.fallback, o.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("load fallback timezone %q: %w", o.fallback, err)
	}
	return ids, uptime.NewAggregator(o.store, dir, o.opts), nil
}

func (o *Orchestrator) computeStore(ctx context.Context, agg *uptime.Aggregator, reportID, storeID string) error {
	res, err := agg.ComputeLatest(ctx, storeID)
	if err != nil {
		return &StoreError{StoreID: storeID, Err: err}
	}
	entry := res.Entry(reportID)
	if err := o.store.SaveEntry(ctx, &entry); err != nil {
		return &StoreError{StoreID: storeID, Err: err}
	}
	return nil
}

// Abandon marks a job that was accepted but will never be run as Failed.
func (o *Orchestrator) Abandon(ctx context.Context, reportID string) error {
	o.logger.Warn("abandoning queued report", zap.String("report_id", reportID))
	return o.finish(ctx, reportID, store.JobOutcome{
		Status:     model.ReportFailed,
		Error:      "shutdown before the report started",
		FinishedAt: o.now(),
	})
}

func (o *Orchestrator) finish(ctx context.Context, reportID string, outcome store.JobOutcome) error {
	if !outcome.Status.Terminal() {
		return fmt.Errorf("report %s: %q is not a terminal status", reportID, outcome.Status)
	}
	if err := o.store.FinishJob(ctx, reportID, outcome); err != nil {
		o.logger.Error("failed to record report outcome",
			zap.String("report_id", reportID),
			zap.String("status", string(outcome.Status)),
			zap.Error(err))
		return err
	}
	if o.notifier != nil {
		o.notifier.Notify(reportID, outcome.Status)
	}
	return nil
}
