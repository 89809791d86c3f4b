package config

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

type Enforcement string

const (
	// SoftEnforcement checks usage and increments after a successful reply.
	// Concurrent requests from one user may overrun the limit by a few messages.
	SoftEnforcement Enforcement = "soft"
	// HardEnforcement reserves a slot with a conditional increment before
	// generation and refunds it when generation fails.
	HardEnforcement Enforcement = "hard"
)

// QuotaConfig holds the daily message limits. It is loaded once at startup
// and never mutated afterwards.
type QuotaConfig struct {
	FreeDailyLimit    int64       `yaml:"free_daily_limit"`
	PremiumDailyLimit int64       `yaml:"premium_daily_limit"`
	Enforcement       Enforcement `yaml:"enforcement"`
	Timezone          string      `yaml:"timezone"`
}

func NewQuotaConfig() *QuotaConfig {
	return &QuotaConfig{
		FreeDailyLimit:    20,
		PremiumDailyLimit: 1000,
		Enforcement:       SoftEnforcement,
		Timezone:          "UTC",
	}
}

func (q *QuotaConfig) Validate() error {
	if q.FreeDailyLimit < 0 || q.PremiumDailyLimit < 0 {
		return fmt.Errorf("quota: daily limits must not be negative")
	}
	switch q.Enforcement {
	case SoftEnforcement, HardEnforcement:
	default:
		return fmt.Errorf("quota: invalid enforcement %q", q.Enforcement)
	}
	if _, err := time.LoadLocation(q.Timezone); err != nil {
		return fmt.Errorf("quota: invalid timezone %q: %w", q.Timezone, err)
	}
	return nil
}

// Location returns the zone calendar days are computed in.
func (q *QuotaConfig) Location() *time.Location {
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
