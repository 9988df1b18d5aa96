package model

import "time"

// ReportStatus is the lifecycle state of a report job.
type ReportStatus string

const (
	ReportRunning  ReportStatus = "Running"
	ReportComplete ReportStatus = "Complete"
	ReportFailed   ReportStatus = "Failed"
)

// Terminal reports whether no further transition can happen.
func (s ReportStatus) Terminal() bool {
	return s == ReportComplete || s == ReportFailed
}

// ReportJob is one asynchronous computation across all stores.
type ReportJob struct {
	ID            int64        `gorm:"primaryKey"`
	ReportID      string       `gorm:"uniqueIndex;size:64;not null"`
	Status        ReportStatus `gorm:"size:16;not null"`
	StoresTotal   int          `gorm:"not null;default:0"`
	StoresSkipped int          `gorm:"not null;default:0"`
	Error         string       `gorm:"size:512"`
	CreatedAt     time.Time    `gorm:"not null"`
	FinishedAt    *time.Time
}

// ReportEntry holds the uptime and downtime of one store for one job, in hours.
type ReportEntry struct {
	ID               int64   `gorm:"primaryKey"`
	ReportID         string  `gorm:"size:64;not null;uniqueIndex:idx_report_entries_report_store,priority:1"`
	StoreID          string  `gorm:"size:64;not null;uniqueIndex:idx_report_entries_report_store,priority:2"`
	UptimeLastHour   float64 `gorm:"not null"`
	UptimeLastDay    float64 `gorm:"not null"`
	UptimeLastWeek   float64 `gorm:"not null"`
	DowntimeLastHour float64 `gorm:"not null"`
	DowntimeLastDay  float64 `gorm:"not null"`
	DowntimeLastWeek float64 `gorm:"not null"`
}
