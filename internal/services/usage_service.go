package services

import (
	"chatmate-api/internal/logger"
	"chatmate-api/internal/models"
	"chatmate-api/internal/repository"
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

type UsageService interface {
	GetStatus(ctx context.Context, userID string) (*UsageStatus, error)
	SetTier(ctx context.Context, actor, userID string, isPremium bool) (*UsageStatus, error)
}

type UsageStatus struct {
	DailyUsage        int64        `json:"daily_usage"`
	DailyLimit        int64        `json:"daily_limit"`
	IsPremium         bool         `json:"is_premium"`
	RemainingMessages int64        `json:"remaining_messages"`
	WarningLevel      WarningLevel `json:"warning_level"`
	LastResetDate     string       `json:"last_reset_date"`
	ResetsAt          time.Time    `json:"-"`
}

type usageService struct {
	repo   repository.UsageRepository
	policy *UsagePolicy
	clock  repository.Clock
	audit  AuditLogService
}

// NewUsageService reports quota status. audit may be nil when no relational
// store is configured.
func NewUsageService(repo repository.UsageRepository, policy *UsagePolicy, clock repository.Clock, audit AuditLogService) UsageService {
	return &usageService{
		repo:   repo,
		policy: policy,
		clock:  clock,
		audit:  audit,
	}
}

// GetStatus never fails on a store read error: the user is reported as an
// unused free account, the same view the admission flow takes.
func (s *usageService) GetStatus(ctx context.Context, userID string) (*UsageStatus, error) {
	rec, err := s.repo.GetUsage(ctx, userID)
	if err != nil {
		logger.LogEvent(logrus.WarnLevel, "Usage read failed, reporting defaults", logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
		rec = nil
	}
	return s.status(rec), nil
}

func (s *usageService) SetTier(ctx context.Context, actor, userID string, isPremium bool) (*UsageStatus, error) {
	if err := s.repo.SetPremium(ctx, userID, isPremium); err != nil {
		return nil, err
	}

	if s.audit != nil {
		err := s.audit.Record(ctx, actor, models.AuditTierChange, "user", userID, "is_premium="+strconv.FormatBool(isPremium))
		if err != nil {
			logger.LogEvent(logrus.WarnLevel, "Failed to write audit log", logrus.Fields{
				"action": models.AuditTierChange,
				"error":  err.Error(),
			})
		}
	}

	rec, err := s.repo.GetUsage(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.status(rec), nil
}

func (s *usageService) status(rec *models.UsageRecord) *UsageStatus {
	now := s.clock()
	if rec == nil {
		rec = &models.UsageRecord{LastResetDate: models.UsageDay(now)}
	}

	d := s.policy.Evaluate(rec.DailyUsage, rec.IsPremium)
	return &UsageStatus{
		DailyUsage:        rec.DailyUsage,
		DailyLimit:        d.Limit,
		IsPremium:         rec.IsPremium,
		RemainingMessages: d.Remaining,
		WarningLevel:      s.policy.WarningLevel(rec.DailyUsage, rec.IsPremium),
		LastResetDate:     rec.LastResetDate,
		ResetsAt:          models.NextMidnight(now),
	}
}
