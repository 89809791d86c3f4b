package services

import (
	"chatmate-api/internal/models"
	"chatmate-api/internal/pkg/errors"
	"chatmate-api/internal/repository"
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// auditTrail returns an audit service over a memory store and a func reading
// the recorded entries oldest first.
func auditTrail(t *testing.T) (AuditLogService, func() []models.AuditLog) {
	repo := repository.NewMemoryAuditLogRepository()
	entries := func() []models.AuditLog {
		out, err := repo.List(context.Background(), repository.AuditQuery{})
		require.NoError(t, err)
		slices.Reverse(out)
		return out
	}
	return NewAuditLogService(repo, fixedClock), entries
}

func TestUsageServiceGetStatus(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryUsageRepository(repository.WithClock(fixedClock))
	svc := NewUsageService(repo, NewUsagePolicy(testQuota()), fixedClock, nil)

	status, err := svc.GetStatus(ctx, "new-user")
	require.NoError(t, err)
	assert.Equal(t, int64(0), status.DailyUsage)
	assert.Equal(t, int64(20), status.DailyLimit)
	assert.Equal(t, int64(20), status.RemainingMessages)
	assert.False(t, status.IsPremium)
	assert.Equal(t, WarningNone, status.WarningLevel)
	assert.Equal(t, "2026-05-10", status.LastResetDate)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), status.ResetsAt)

	for i := 0; i < 17; i++ {
		require.NoError(t, repo.IncrementUsage(ctx, "busy"))
	}
	status, err = svc.GetStatus(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, int64(17), status.DailyUsage)
	assert.Equal(t, int64(3), status.RemainingMessages)
	assert.Equal(t, WarningApproaching, status.WarningLevel)
}

func TestUsageServiceReadFailureReportsDefaults(t *testing.T) {
	repo := &flakyUsageRepo{
		UsageRepository: repository.NewMemoryUsageRepository(),
		getErr:          errors.Unavailable(errors.New("timeout"), "failed to get usage"),
	}
	svc := NewUsageService(repo, NewUsagePolicy(testQuota()), fixedClock, nil)

	status, err := svc.GetStatus(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), status.RemainingMessages)
}

func TestUsageServiceSetTier(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryUsageRepository(repository.WithClock(fixedClock))
	audit, entries := auditTrail(t)
	svc := NewUsageService(repo, NewUsagePolicy(testQuota()), fixedClock, audit)

	require.NoError(t, repo.IncrementUsage(ctx, "u1"))

	status, err := svc.SetTier(ctx, "admin", "u1", true)
	require.NoError(t, err)
	assert.True(t, status.IsPremium)
	assert.Equal(t, int64(1000), status.DailyLimit)
	assert.Equal(t, int64(999), status.RemainingMessages)

	logged := entries()
	require.Len(t, logged, 1)
	assert.Equal(t, models.AuditTierChange, logged[0].Action)
	assert.Equal(t, "u1", logged[0].EntityID)
	assert.Equal(t, "is_premium=true", logged[0].Details)
	assert.Equal(t, testNow, logged[0].Timestamp)
}
