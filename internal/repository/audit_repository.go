package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/educmun/creche-api/internal/models"
)

// AuditRepository appends and lists immutable history entries.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append stores one audit entry. Entries are never updated or deleted.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_entries (id, applicant_id, action, detail, actor, created_at)
        VALUES (:id, :applicant_id, :action, :detail, :actor, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// List returns audit entries, newest first, optionally scoped to one
// applicant.
func (r *AuditRepository) List(ctx context.Context, applicantID string) ([]models.AuditEntry, error) {
	query := "SELECT id, applicant_id, action, detail, actor, created_at FROM audit_entries"
	args := []interface{}{}
	if applicantID != "" {
		query += " WHERE applicant_id = $1"
		args = append(args, applicantID)
	}
	query += " ORDER BY created_at DESC"

	var entries []models.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
