package models

import (
	"time"
)

// DayLayout is the format of LastResetDate.
const DayLayout = "2006-01-02"

// UsageRecord is the per-user daily message counter plus the tier flag.
// LastResetDate is the calendar day DailyUsage applies to.
type UsageRecord struct {
	UserID        string    `gorm:"type:varchar(128);primaryKey" json:"user_id"`
	IsPremium     bool      `gorm:"not null;default:false" json:"is_premium"`
	DailyUsage    int64     `gorm:"not null;default:0" json:"daily_usage"`
	LastResetDate string    `gorm:"type:varchar(10);index" json:"last_reset_date"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (UsageRecord) TableName() string {
	return "usage_records"
}

// UsageDay returns the calendar day of t in its own location.
func UsageDay(t time.Time) string {
	return t.Format(DayLayout)
}

// NextMidnight returns the start of the calendar day after t, in t's location.
func NextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
