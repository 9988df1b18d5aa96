package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storepulse/internal/model"
)

// ErrNotFound is returned when a looked up record does not exist.
var ErrNotFound = errors.New("record not found")

// PersistenceError wraps a failed write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store defines the interface for all database operations.
type Store interface {
	// Report jobs and results
	CreateJob(ctx context.Context, job *model.ReportJob) error
	GetJob(ctx context.Context, reportID string) (*model.ReportJob, error)
	FinishJob(ctx context.Context, reportID string, outcome JobOutcome) error
	SaveEntry(ctx context.Context, entry *model.ReportEntry) error
	Entries(ctx context.Context, reportID string) ([]model.ReportEntry, error)

	// Reference data and observations
	StoreIDs(ctx context.Context) ([]string, error)
	Timezones(ctx context.Context) (map[string]string, error)
	BusinessHours(ctx context.Context, storeID string) ([]model.BusinessHour, error)
	LatestObservation(ctx context.Context, storeID string) (time.Time, bool, error)
	ObservationsAround(ctx context.Context, storeID string, from, to time.Time) ([]model.StatusObservation, error)

	// Seed data
	InsertBusinessHours(ctx context.Context, rows []model.BusinessHour) error
	InsertObservations(ctx context.Context, rows []model.StatusObservation) error
	UpsertTimezones(ctx context.Context, rows []model.StoreTimezone) error

	// Push subscriptions
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
}

// JobOutcome is the terminal state written to a report job.
type JobOutcome struct {
	Status        model.ReportStatus
	StoresTotal   int
	StoresSkipped int
	Error         string
	FinishedAt    time.Time
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

const seedBatchSize = 500
