package model

// StoreTimezone maps a store to its IANA timezone name.
type StoreTimezone struct {
	StoreID      string `gorm:"primaryKey;size:64"`
	TimezoneName string `gorm:"size:64;not null"`
}
