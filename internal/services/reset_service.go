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

type ResetResult struct {
	ResetCount int    `json:"reset_count"`
	Date       string `json:"date"`
}

type ResetService interface {
	// ResetDaily zeroes every counter not yet reset today. Running it twice on
	// the same day is the same as running it once.
	ResetDaily(ctx context.Context, actor string) (*ResetResult, error)
}

type resetService struct {
	repo  repository.UsageRepository
	clock repository.Clock
	audit AuditLogService
}

// NewResetService builds the daily sweep. audit may be nil.
func NewResetService(repo repository.UsageRepository, clock repository.Clock, audit AuditLogService) ResetService {
	return &resetService{
		repo:  repo,
		clock: clock,
		audit: audit,
	}
}

func (s *resetService) ResetDaily(ctx context.Context, actor string) (*ResetResult, error) {
	start := time.Now()
	date := models.UsageDay(s.clock())

	count, err := s.repo.ResetAllUsage(ctx)
	if err != nil {
		logger.LogEvent(logrus.ErrorLevel, "Daily usage reset failed", logrus.Fields{
			"date":        date,
			"reset_count": count,
			"error":       err.Error(),
		})
		return nil, err
	}

	logger.LogEvent(logrus.InfoLevel, "Daily usage reset", logrus.Fields{
		"date":        date,
		"reset_count": count,
		"actor":       actor,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if s.audit != nil {
		if err := s.audit.Record(ctx, actor, models.AuditUsageReset, "usage", date, "reset_count="+strconv.Itoa(count)); err != nil {
			logger.LogEvent(logrus.WarnLevel, "Failed to write audit log", logrus.Fields{
				"action": models.AuditUsageReset,
				"error":  err.Error(),
			})
		}
	}

	return &ResetResult{ResetCount: count, Date: date}, nil
}

// ResetScheduler runs the daily sweep at every local midnight of the clock's
// time zone.
type ResetScheduler struct {
	service ResetService
	clock   repository.Clock
	// after is time.After, replaceable in tests.
	after func(time.Duration) <-chan time.Time
}

func NewResetScheduler(service ResetService, clock repository.Clock) *ResetScheduler {
	return &ResetScheduler{
		service: service,
		clock:   clock,
		after:   time.After,
	}
}

// Run sweeps once on start to catch up a missed day, then at each midnight,
// until ctx is cancelled.
func (s *ResetScheduler) Run(ctx context.Context) {
	s.sweep(ctx)

	for {
		wait := models.NextMidnight(s.clock()).Sub(s.clock())
		select {
		case <-ctx.Done():
			return
		case <-s.after(wait):
			s.sweep(ctx)
		}
	}
}

func (s *ResetScheduler) sweep(ctx context.Context) {
	// Errors are logged by the service; the next midnight retries.
	_, _ = s.service.ResetDaily(ctx, "scheduler")
}
