package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"storepulse/internal/model"
)

// CreateJob inserts a new report job.
func (s *gormStore) CreateJob(ctx context.Context, job *model.ReportJob) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return &PersistenceError{Op: "create report job " + job.ReportID, Err: err}
	}
	return nil
}

// GetJob looks up a report job by its public id.
func (s *gormStore) GetJob(ctx context.Context, reportID string) (*model.ReportJob, error) {
	var job model.ReportJob
	err := s.db.WithContext(ctx).Where("report_id = ?", reportID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report job %s: %w", reportID, err)
	}
	return &job, nil
}

// FinishJob moves a running job to its terminal state. The update only
// matches running jobs, so the terminal state is written at most once.
func (s *gormStore) FinishJob(ctx context.Context, reportID string, outcome JobOutcome) error {
	finishedAt := outcome.FinishedAt.UTC()
	res := s.db.WithContext(ctx).
		Model(&model.ReportJob{}).
		Where("report_id = ? AND status = ?", reportID, model.ReportRunning).
		Updates(map[string]any{
			"status":         outcome.Status,
			"stores_total":   outcome.StoresTotal,
			"stores_skipped": outcome.StoresSkipped,
			"error":          outcome.Error,
			"finished_at":    finishedAt,
		})
	if res.Error != nil {
		return &PersistenceError{Op: "finish report job " + reportID, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("report job %s is not running: %w", reportID, ErrNotFound)
	}
	return nil
}

// SaveEntry inserts the result row of one store. Each call commits on its own.
func (s *gormStore) SaveEntry(ctx context.Context, entry *model.ReportEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return &PersistenceError{Op: fmt.Sprintf("save entry for store %s", entry.StoreID), Err: err}
	}
	return nil
}

// Entries returns the result rows of a report ordered by store id.
func (s *gormStore) Entries(ctx context.Context, reportID string) ([]model.ReportEntry, error) {
	var entries []model.ReportEntry
	if err := s.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("store_id").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch entries of report %s: %w", reportID, err)
	}
	return entries, nil
}
