package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"storepulse/internal/model"
)

const rosterQuery = `SELECT store_id FROM store_timezones
UNION SELECT store_id FROM business_hours
UNION SELECT store_id FROM status_observations
ORDER BY store_id`

// StoreIDs returns every store known to any reference table.
func (s *gormStore) StoreIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Raw(rosterQuery).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load store roster: %w", err)
	}
	return ids, nil
}

// Timezones returns the store -> zone name mapping.
func (s *gormStore) Timezones(ctx context.Context) (map[string]string, error) {
	var rows []model.StoreTimezone
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load timezones: %w", err)
	}
	zones := make(map[string]string, len(rows))
	for _, r := range rows {
		zones[r.StoreID] = r.TimezoneName
	}
	return zones, nil
}

// BusinessHours returns the business hour rules of a store.
func (s *gormStore) BusinessHours(ctx context.Context, storeID string) ([]model.BusinessHour, error) {
	var rows []model.BusinessHour
	if err := s.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("day_of_week, start_time_local").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load business hours of store %s: %w", storeID, err)
	}
	return rows, nil
}

// LatestObservation returns the time of the newest observation of a store.
func (s *gormStore) LatestObservation(ctx context.Context, storeID string) (time.Time, bool, error) {
	var rows []model.StatusObservation
	if err := s.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("observed_at DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return time.Time{}, false, fmt.Errorf("failed to load latest observation of store %s: %w", storeID, err)
	}
	if len(rows) == 0 {
		return time.Time{}, false, nil
	}
	return rows[0].ObservedAt.UTC(), true, nil
}

// ObservationsAround returns the observations in [from, to] plus the nearest
// one on each side, ordered by time.
func (s *gormStore) ObservationsAround(ctx context.Context, storeID string, from, to time.Time) ([]model.StatusObservation, error) {
	db := s.db.WithContext(ctx)
	from, to = from.UTC(), to.UTC()

	var before []model.StatusObservation
	if err := db.Where("store_id = ? AND observed_at < ?", storeID, from).
		Order("observed_at DESC").Limit(1).Find(&before).Error; err != nil {
		return nil, fmt.Errorf("failed to load observations before window for store %s: %w", storeID, err)
	}

	var within []model.StatusObservation
	if err := db.Where("store_id = ? AND observed_at >= ? AND observed_at <= ?", storeID, from, to).
		Order("observed_at").Find(&within).Error; err != nil {
		return nil, fmt.Errorf("failed to load observations for store %s: %w", storeID, err)
	}

	var after []model.StatusObservation
	if err := db.Where("store_id = ? AND observed_at > ?", storeID, to).
		Order("observed_at").Limit(1).Find(&after).Error; err != nil {
		return nil, fmt.Errorf("failed to load observations after window for store %s: %w", storeID, err)
	}

	out := make([]model.StatusObservation, 0, len(before)+len(within)+len(after))
	out = append(out, before...)
	out = append(out, within...)
	return append(out, after...), nil
}

// InsertBusinessHours appends business hour rules in batches.
func (s *gormStore) InsertBusinessHours(ctx context.Context, rows []model.BusinessHour) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(rows, seedBatchSize).Error; err != nil {
		return &PersistenceError{Op: "insert business hours", Err: err}
	}
	return nil
}

// InsertObservations appends status observations in batches.
func (s *gormStore) InsertObservations(ctx context.Context, rows []model.StatusObservation) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].ObservedAt = rows[i].ObservedAt.UTC()
	}
	if err := s.db.WithContext(ctx).CreateInBatches(rows, seedBatchSize).Error; err != nil {
		return &PersistenceError{Op: "insert observations", Err: err}
	}
	return nil
}

// UpsertTimezones writes the store zones, replacing existing names.
func (s *gormStore) UpsertTimezones(ctx context.Context, rows []model.StoreTimezone) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timezone_name"}),
	}).CreateInBatches(rows, seedBatchSize).Error; err != nil {
		return &PersistenceError{Op: "upsert timezones", Err: err}
	}
	return nil
}
