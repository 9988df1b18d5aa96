package model

import "time"

// StoreStatus is the reported operational state of a store.
type StoreStatus string

const (
	StatusActive   StoreStatus = "active"
	StatusInactive StoreStatus = "inactive"
)

// Valid reports whether s is one of the known statuses.
func (s StoreStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// StatusObservation is a single timestamped status poll of a store (append-only).
type StatusObservation struct {
	ID         int64       `gorm:"primaryKey"`
	StoreID    string      `gorm:"size:64;not null;index:idx_observations_store_time,priority:1"`
	ObservedAt time.Time   `gorm:"not null;index:idx_observations_store_time,priority:2"` // UTC
	Status     StoreStatus `gorm:"size:16;not null"`
}
