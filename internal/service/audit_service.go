package service

import (
	"context"

	"github.com/educmun/creche-api/internal/models"
	appErrors "github.com/educmun/creche-api/pkg/errors"
)

type auditLister interface {
	List(ctx context.Context, applicantID string) ([]models.AuditEntry, error)
}

// AuditService exposes the append-only history for reading.
type AuditService struct {
	repo auditLister
}

// NewAuditService constructs AuditService.
func NewAuditService(repo auditLister) *AuditService {
	return &AuditService{repo: repo}
}

// List returns audit entries, optionally scoped to one applicant.
func (s *AuditService) List(ctx context.Context, applicantID string) ([]models.AuditEntry, error) {
	entries, err := s.repo.List(ctx, applicantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list audit entries")
	}
	return entries, nil
}
