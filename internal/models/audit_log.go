package models

import (
	"time"
)

// Audit actions.
const (
	AuditUsageReset = "usage.reset"
	AuditTierChange = "user.tier_change"
)

type AuditLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Actor      string    `gorm:"type:varchar(128)" json:"actor"`
	Action     string    `gorm:"type:varchar(64);index" json:"action"`
	EntityType string    `gorm:"type:varchar(64)" json:"entityType"`
	EntityID   string    `gorm:"type:varchar(128)" json:"entityId"`
	Details    string    `json:"details"`
	Timestamp  time.Time `gorm:"index" json:"timestamp"`
}
