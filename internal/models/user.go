package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the profile recorded when an identity token is verified. The
// identity provider owns the account; this is a local copy for display.
type User struct {
	ID          string    `gorm:"type:varchar(128);primaryKey" json:"id"`
	Email       string    `gorm:"type:varchar(255);index" json:"email"`
	DisplayName string    `gorm:"type:varchar(255)" json:"display_name,omitempty"`
	LastLoginAt time.Time `json:"last_login_at"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	return nil
}

func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

func (User) TableName() string {
	return "users"
}
