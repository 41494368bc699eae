package service

import (
	"context"
	"fmt"

	"github.com/xela07ax/restguard/internal/audit"
	"github.com/xela07ax/restguard/internal/domain"
)

// AuditLogProvider описывает контракт для чтения данных аудита.
type AuditLogProvider interface {
	FetchLogs(ctx context.Context, siteID int64, outcome string, limit int) ([]audit.AccessEvent, error)
	GetAccessStats(ctx context.Context, siteID int64) (*domain.AccessStats, error)
}

type AuditService struct {
	repo   AuditLogProvider
	siteID int64
}

func NewAuditService(repo AuditLogProvider, siteID int64) *AuditService {
	return &AuditService{repo: repo, siteID: siteID}
}

// FetchLogs: последние решения; outcome пустой или один из исходов движка.
func (s *AuditService) FetchLogs(ctx context.Context, outcome string, limit int) ([]audit.AccessEvent, error) {
	logs, err := s.repo.FetchLogs(ctx, s.siteID, outcome, limit)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch logs: %w", err)
	}
	return logs, nil
}

func (s *AuditService) Stats(ctx context.Context) (*domain.AccessStats, error) {
	stats, err := s.repo.GetAccessStats(ctx, s.siteID)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to aggregate: %w", err)
	}
	return stats, nil
}
