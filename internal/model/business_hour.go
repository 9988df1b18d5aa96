package model

// BusinessHour is one local open/close range of a store on a weekday.
// A store may have several rows for the same day (split shifts).
type BusinessHour struct {
	ID             int64  `gorm:"primaryKey"`
	StoreID        string `gorm:"size:64;not null;index:idx_business_hours_store_day"`
	DayOfWeek      int    `gorm:"not null;index:idx_business_hours_store_day"` // 0=Monday, 6=Sunday
	StartTimeLocal string `gorm:"size:16;not null"`
	EndTimeLocal   string `gorm:"size:16;not null"`
}
