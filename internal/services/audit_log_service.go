package services

import (
	"chatmate-api/internal/models"
	"chatmate-api/internal/repository"
	"context"
)

const (
	defaultAuditPage = 50
	maxAuditPage     = 200
)

// AuditPage is one page of the operator audit trail. NextBefore is the cursor
// for the following page, zero on the last one.
type AuditPage struct {
	Entries    []models.AuditLog `json:"entries"`
	NextBefore uint              `json:"next_before,omitempty"`
}

type AuditLogService interface {
	// Record appends an operator action. entityID is the user id for tier
	// changes and the calendar day for resets.
	Record(ctx context.Context, actor, action, entityType, entityID, details string) error
	List(ctx context.Context, q repository.AuditQuery) (*AuditPage, error)
}

type auditLogService struct {
	repo  repository.AuditLogRepository
	clock repository.Clock
}

func NewAuditLogService(repo repository.AuditLogRepository, clock repository.Clock) AuditLogService {
	return &auditLogService{repo: repo, clock: clock}
}

func (s *auditLogService) Record(ctx context.Context, actor, action, entityType, entityID, details string) error {
	return s.repo.Append(ctx, &models.AuditLog{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		Timestamp:  s.clock().UTC(),
	})
}

func (s *auditLogService) List(ctx context.Context, q repository.AuditQuery) (*AuditPage, error) {
	if q.Limit <= 0 {
		q.Limit = defaultAuditPage
	}
	q.Limit = min(q.Limit, maxAuditPage)

	entries, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.AuditLog{}
	}

	page := &AuditPage{Entries: entries}
	if len(entries) == q.Limit {
		page.NextBefore = entries[len(entries)-1].ID
	}
	return page, nil
}
