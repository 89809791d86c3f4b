package repository

import (
	"chatmate-api/internal/models"
	"chatmate-api/internal/pkg/errors"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type postgresUsageRepository struct {
	db   *gorm.DB
	opts usageOptions
}

func NewPostgresUsageRepository(db *gorm.DB, opts ...UsageOption) UsageRepository {
	return &postgresUsageRepository{
		db:   db,
		opts: newUsageOptions(opts),
	}
}

func (r *postgresUsageRepository) GetUsage(ctx context.Context, userID string) (*models.UsageRecord, error) {
	var rec models.UsageRecord
	result := r.db.WithContext(ctx).First(&rec, "user_id = ?", userID)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Unavailable(result.Error, "failed to get usage")
	}
	return &rec, nil
}

// IncrementUsage is a single upsert; the row lock taken by ON CONFLICT makes
// concurrent increments serialize inside Postgres.
func (r *postgresUsageRepository) IncrementUsage(ctx context.Context, userID string) error {
	now := r.opts.clock()
	rec := models.UsageRecord{
		UserID:        userID,
		DailyUsage:    1,
		LastResetDate: models.UsageDay(now),
		UpdatedAt:     now,
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"daily_usage": gorm.Expr("usage_records.daily_usage + 1"),
			"updated_at":  now,
		}),
	}).Create(&rec)
	if result.Error != nil {
		return errors.Unavailable(result.Error, "failed to increment usage")
	}
	return nil
}

func (r *postgresUsageRepository) IncrementUsageIfBelow(ctx context.Context, userID string, limit int64) (bool, error) {
	if limit <= 0 {
		return false, nil
	}

	ok, err := r.conditionalIncrement(ctx, userID, limit)
	if err != nil || ok {
		return ok, err
	}

	now := r.opts.clock()
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UsageRecord{
		UserID:        userID,
		DailyUsage:    1,
		LastResetDate: models.UsageDay(now),
		UpdatedAt:     now,
	})
	if result.Error != nil {
		return false, errors.Unavailable(result.Error, "failed to reserve usage")
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	// The row exists: it is either at the limit or was inserted concurrently
	// after the first update missed it.
	return r.conditionalIncrement(ctx, userID, limit)
}

func (r *postgresUsageRepository) conditionalIncrement(ctx context.Context, userID string, limit int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UsageRecord{}).
		Where("user_id = ? AND daily_usage < ?", userID, limit).
		Updates(map[string]interface{}{
			"daily_usage": gorm.Expr("daily_usage + 1"),
			"updated_at":  r.opts.clock(),
		})
	if result.Error != nil {
		return false, errors.Unavailable(result.Error, "failed to reserve usage")
	}
	return result.RowsAffected == 1, nil
}

func (r *postgresUsageRepository) DecrementUsage(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.UsageRecord{}).
		Where("user_id = ? AND daily_usage > 0", userID).
		Updates(map[string]interface{}{
			"daily_usage": gorm.Expr("daily_usage - 1"),
			"updated_at":  r.opts.clock(),
		})
	if result.Error != nil {
		return errors.Unavailable(result.Error, "failed to refund usage")
	}
	return nil
}

// ResetAllUsage updates at most batchSize rows per statement so a sweep over
// many users never holds one long transaction.
func (r *postgresUsageRepository) ResetAllUsage(ctx context.Context) (int, error) {
	now := r.opts.clock()
	today := models.UsageDay(now)
	total := 0

	for {
		pending := r.db.WithContext(ctx).
			Model(&models.UsageRecord{}).
			Select("user_id").
			Where("last_reset_date IS NULL OR last_reset_date <> ?", today).
			Limit(r.opts.batchSize)

		result := r.db.WithContext(ctx).
			Model(&models.UsageRecord{}).
			Where("user_id IN (?)", pending).
			Updates(map[string]interface{}{
				"daily_usage":     0,
				"last_reset_date": today,
				"updated_at":      now,
			})
		if result.Error != nil {
			return total, errors.Unavailable(result.Error, "failed to reset usage")
		}

		total += int(result.RowsAffected)
		if result.RowsAffected < int64(r.opts.batchSize) {
			return total, nil
		}
	}
}

func (r *postgresUsageRepository) SetPremium(ctx context.Context, userID string, isPremium bool) error {
	now := r.opts.clock()
	rec := models.UsageRecord{
		UserID:        userID,
		IsPremium:     isPremium,
		LastResetDate: models.UsageDay(now),
		UpdatedAt:     now,
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_premium", "updated_at"}),
	}).Create(&rec)
	if result.Error != nil {
		return errors.Unavailable(result.Error, "failed to set tier")
	}
	return nil
}
