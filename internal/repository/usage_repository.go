package repository

import (
	"chatmate-api/internal/models"
	"context"
	"sync"
	"time"
)

// UsageRepository is the quota store. Implementations must increment with the
// backend's native atomic primitive, never read-modify-write from the caller.
type UsageRepository interface {
	// GetUsage returns nil, nil when the user has no record.
	GetUsage(ctx context.Context, userID string) (*models.UsageRecord, error)
	// IncrementUsage adds one to the counter, creating the record with a
	// counter of one if absent.
	IncrementUsage(ctx context.Context, userID string) error
	// IncrementUsageIfBelow increments only when the counter is below limit,
	// as one atomic operation. Reports whether the increment happened.
	IncrementUsageIfBelow(ctx context.Context, userID string, limit int64) (bool, error)
	// DecrementUsage gives back one message. The counter never drops below zero.
	DecrementUsage(ctx context.Context, userID string) error
	// ResetAllUsage zeroes every record not yet reset today and returns how
	// many records it touched.
	ResetAllUsage(ctx context.Context) (int, error)
	SetPremium(ctx context.Context, userID string, isPremium bool) error
}

type Clock func() time.Time

type usageOptions struct {
	clock     Clock
	batchSize int
	keyPrefix string
}

type UsageOption func(*usageOptions)

// WithClock sets the time source used to compute the current calendar day.
// The returned time's location decides where days begin.
func WithClock(clock Clock) UsageOption {
	return func(o *usageOptions) { o.clock = clock }
}

// WithBatchSize sets how many records a reset sweep writes per round trip.
func WithBatchSize(n int) UsageOption {
	return func(o *usageOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithKeyPrefix sets the Redis key prefix (default "chatmate:usage:").
func WithKeyPrefix(prefix string) UsageOption {
	return func(o *usageOptions) { o.keyPrefix = prefix }
}

func newUsageOptions(opts []UsageOption) usageOptions {
	o := usageOptions{
		clock:     func() time.Time { return time.Now().UTC() },
		batchSize: 500,
		keyPrefix: "chatmate:usage:",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o usageOptions) today() string {
	return models.UsageDay(o.clock())
}

type memoryUsageRepository struct {
	mu      sync.Mutex
	records map[string]*models.UsageRecord
	opts    usageOptions
}

// NewMemoryUsageRepository keeps usage in process memory. Counters are lost
// on restart and are not shared between instances.
func NewMemoryUsageRepository(opts ...UsageOption) UsageRepository {
	return &memoryUsageRepository{
		records: make(map[string]*models.UsageRecord),
		opts:    newUsageOptions(opts),
	}
}

func (r *memoryUsageRepository) GetUsage(ctx context.Context, userID string) (*models.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *memoryUsageRepository) IncrementUsage(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record(userID).DailyUsage++
	return nil
}

func (r *memoryUsageRepository) IncrementUsageIfBelow(ctx context.Context, userID string, limit int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var used int64
	if rec, ok := r.records[userID]; ok {
		used = rec.DailyUsage
	}
	if used >= limit {
		return false, nil
	}
	r.record(userID).DailyUsage++
	return true, nil
}

func (r *memoryUsageRepository) DecrementUsage(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[userID]; ok && rec.DailyUsage > 0 {
		rec.DailyUsage--
		rec.UpdatedAt = r.opts.clock()
	}
	return nil
}

func (r *memoryUsageRepository) ResetAllUsage(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.opts.clock()
	today := models.UsageDay(now)
	count := 0
	for _, rec := range r.records {
		if rec.LastResetDate == today {
			continue
		}
		rec.DailyUsage = 0
		rec.LastResetDate = today
		rec.UpdatedAt = now
		count++
	}
	return count, nil
}

func (r *memoryUsageRepository) SetPremium(ctx context.Context, userID string, isPremium bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record(userID).IsPremium = isPremium
	return nil
}

// record returns the user's record, creating it for today. Callers hold mu.
func (r *memoryUsageRepository) record(userID string) *models.UsageRecord {
	now := r.opts.clock()
	rec, ok := r.records[userID]
	if !ok {
		rec = &models.UsageRecord{
			UserID:        userID,
			LastResetDate: models.UsageDay(now),
		}
		r.records[userID] = rec
	}
	rec.UpdatedAt = now
	return rec
}
