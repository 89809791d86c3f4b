package repository

import (
	"chatmate-api/internal/models"
	"chatmate-api/internal/pkg/errors"
	"context"
	"sync"

	"gorm.io/gorm"
)

// AuditQuery selects operator actions newest first. BeforeID pages backwards:
// only entries with a smaller id are returned. Zero values do not filter.
type AuditQuery struct {
	Action   string
	EntityID string
	BeforeID uint
	Limit    int
}

type AuditLogRepository interface {
	Append(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, q AuditQuery) ([]models.AuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return errors.Wrap(err, "failed to append audit entry")
	}
	return nil
}

func (r *auditLogRepository) List(ctx context.Context, q AuditQuery) ([]models.AuditLog, error) {
	tx := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if q.Action != "" {
		tx = tx.Where("action = ?", q.Action)
	}
	if q.EntityID != "" {
		tx = tx.Where("entity_id = ?", q.EntityID)
	}
	if q.BeforeID > 0 {
		tx = tx.Where("id < ?", q.BeforeID)
	}

	var entries []models.AuditLog
	if err := tx.Order("id desc").Limit(q.Limit).Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list audit entries")
	}
	return entries, nil
}

type memoryAuditLogRepository struct {
	mu      sync.RWMutex
	entries []models.AuditLog
}

// NewMemoryAuditLogRepository keeps the audit trail in process memory for
// deployments without Postgres.
func NewMemoryAuditLogRepository() AuditLogRepository {
	return &memoryAuditLogRepository{}
}

func (r *memoryAuditLogRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = uint(len(r.entries) + 1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memoryAuditLogRepository) List(ctx context.Context, q AuditQuery) ([]models.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.AuditLog{}
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		switch {
		case q.BeforeID > 0 && e.ID >= q.BeforeID:
			continue
		case q.Action != "" && e.Action != q.Action:
			continue
		case q.EntityID != "" && e.EntityID != q.EntityID:
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}
