package services

import (
	"chatmate-api/internal/models"
	"chatmate-api/internal/repository"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type movableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *movableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestResetDaily(t *testing.T) {
	ctx := context.Background()
	clock := &movableClock{now: testNow}
	repo := repository.NewMemoryUsageRepository(repository.WithClock(clock.Now))
	audit, entries := auditTrail(t)
	svc := NewResetService(repo, clock.Now, audit)

	for _, u := range []string{"a", "b", "c"} {
		require.NoError(t, repo.IncrementUsage(ctx, u))
		require.NoError(t, repo.IncrementUsage(ctx, u))
	}

	res, err := svc.ResetDaily(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ResetCount, "same-day sweep leaves today's counters")

	clock.Set(testNow.Add(24 * time.Hour))

	res, err = svc.ResetDaily(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ResetCount)
	assert.Equal(t, "2026-05-11", res.Date)

	res, err = svc.ResetDaily(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ResetCount)

	for _, u := range []string{"a", "b", "c"} {
		rec, err := repo.GetUsage(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, int64(0), rec.DailyUsage)
	}

	logged := entries()
	require.Len(t, logged, 3)
	assert.Equal(t, models.AuditUsageReset, logged[1].Action)
	assert.Equal(t, "reset_count=3", logged[1].Details)
}

func TestResetDailyInTimezone(t *testing.T) {
	ctx := context.Background()
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	// 23:30 UTC on May 10 is already May 11 in Warsaw.
	clock := &movableClock{now: time.Date(2026, 5, 10, 21, 0, 0, 0, time.UTC).In(warsaw)}
	repo := repository.NewMemoryUsageRepository(repository.WithClock(clock.Now))
	svc := NewResetService(repo, clock.Now, nil)

	require.NoError(t, repo.IncrementUsage(ctx, "u1"))
	clock.Set(time.Date(2026, 5, 10, 23, 30, 0, 0, time.UTC).In(warsaw))

	res, err := svc.ResetDaily(ctx, "scheduler")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ResetCount)
	assert.Equal(t, "2026-05-11", res.Date)
}

type countingReset struct {
	calls chan string
}

func (c *countingReset) ResetDaily(ctx context.Context, actor string) (*ResetResult, error) {
	c.calls <- actor
	return &ResetResult{}, nil
}

func TestResetSchedulerRunsAtMidnight(t *testing.T) {
	svc := &countingReset{calls: make(chan string, 4)}
	sched := NewResetScheduler(svc, fixedClock)

	waits := make(chan time.Duration, 4)
	ticks := make(chan time.Time)
	sched.after = func(d time.Duration) <-chan time.Time {
		waits <- d
		return ticks
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	assert.Equal(t, "scheduler", <-svc.calls, "catch-up sweep on start")
	assert.Equal(t, 14*time.Hour+30*time.Minute, <-waits)

	ticks <- testNow
	assert.Equal(t, "scheduler", <-svc.calls)
	<-waits

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
