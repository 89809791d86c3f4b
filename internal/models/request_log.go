package models

import (
	"time"
)

type RequestStatus string

const (
	StatusSuccess RequestStatus = "SUCCESS"
	StatusDenied  RequestStatus = "DENIED"
	StatusError   RequestStatus = "ERROR"
)

// RequestLog is one authenticated API call, kept for the user's activity view.
type RequestLog struct {
	ID         uint          `gorm:"primarykey" json:"id"`
	RequestID  string        `gorm:"type:varchar(64)" json:"request_id"`
	UserID     string        `gorm:"type:varchar(128);index" json:"user_id"`
	Endpoint   string        `gorm:"index" json:"endpoint"`
	Method     string        `json:"method"`
	Status     RequestStatus `json:"status"`
	StatusCode int           `json:"status_code"`
	Summary    string        `json:"summary"`
	DurationMs int64         `json:"duration_ms"`
	Timestamp  time.Time     `gorm:"index" json:"timestamp"`
}

// StatusFromCode classifies an HTTP status code. 429 is a quota denial,
// which is an expected outcome rather than an error.
func StatusFromCode(code int) RequestStatus {
	switch {
	case code == 429:
		return StatusDenied
	case code >= 400:
		return StatusError
	default:
		return StatusSuccess
	}
}
