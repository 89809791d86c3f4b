package services

import (
	"chatmate-api/internal/models"
	"chatmate-api/internal/repository"
	"context"
	"time"
)

type RequestLogService interface {
	LogRequest(ctx context.Context, entry *models.RequestLog) error
	GetUserLogs(ctx context.Context, userID string, from, to time.Time) ([]models.RequestLog, error)
}

const maxActivityEntries = 200

type requestLogService struct {
	repo repository.RequestLogRepository
}

func NewRequestLogService(repo repository.RequestLogRepository) RequestLogService {
	return &requestLogService{repo: repo}
}

func (s *requestLogService) LogRequest(ctx context.Context, entry *models.RequestLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = models.StatusFromCode(entry.StatusCode)
	}
	return s.repo.Create(ctx, entry)
}

func (s *requestLogService) GetUserLogs(ctx context.Context, userID string, from, to time.Time) ([]models.RequestLog, error) {
	return s.repo.GetUserLogs(ctx, userID, from, to, maxActivityEntries)
}
