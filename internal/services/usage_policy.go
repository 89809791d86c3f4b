package services

import (
	"chatmate-api/internal/config"
)

type WarningLevel string

const (
	WarningNone        WarningLevel = "none"
	WarningApproaching WarningLevel = "approaching"
	WarningCritical    WarningLevel = "critical"
	WarningExceeded    WarningLevel = "exceeded"
)

// Decision is the outcome of evaluating a user's usage against their limit.
// Limit and Usage are always filled so denials can be reported to the client.
type Decision struct {
	Allowed   bool
	Remaining int64
	Limit     int64
	Usage     int64
}

// UsagePolicy decides whether one more message is allowed. It holds no state
// beyond the configured limits.
type UsagePolicy struct {
	quota *config.QuotaConfig
}

func NewUsagePolicy(quota *config.QuotaConfig) *UsagePolicy {
	return &UsagePolicy{quota: quota}
}

func (p *UsagePolicy) LimitFor(isPremium bool) int64 {
	if isPremium {
		return p.quota.PremiumDailyLimit
	}
	return p.quota.FreeDailyLimit
}

func (p *UsagePolicy) Evaluate(usage int64, isPremium bool) Decision {
	limit := p.LimitFor(isPremium)
	return Decision{
		Allowed:   usage < limit,
		Remaining: max(0, limit-usage),
		Limit:     limit,
		Usage:     usage,
	}
}

// EvaluateUnknown admits a user with no usage record, whatever the limits.
func (p *UsagePolicy) EvaluateUnknown() Decision {
	limit := p.LimitFor(false)
	return Decision{
		Allowed:   true,
		Remaining: max(0, limit),
		Limit:     limit,
	}
}

func (p *UsagePolicy) WarningLevel(usage int64, isPremium bool) WarningLevel {
	limit := p.LimitFor(isPremium)
	switch {
	case usage >= limit:
		return WarningExceeded
	case usage*100 >= limit*95:
		return WarningCritical
	case usage*100 >= limit*80:
		return WarningApproaching
	default:
		return WarningNone
	}
}
