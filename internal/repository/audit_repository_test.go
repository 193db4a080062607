package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/educmun/creche-api/internal/models"
)

func TestAuditRepositoryAppend(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_entries")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditEntry{
		ApplicantID: "a1",
		Action:      models.AuditActionCallUp,
		Detail:      "called up to Creche Central / Bercario I",
		Actor:       "operator",
	}
	require.NoError(t, repo.Append(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListForApplicant(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	rows := sqlmock.NewRows([]string{"id", "applicant_id", "action", "detail", "actor", "created_at"}).
		AddRow("e2", "a1", models.AuditActionEnroll, "enrollment confirmed at facility f1", "operator", time.Now()).
		AddRow("e1", "a1", models.AuditActionCallUp, "called up", "operator", time.Now().Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE applicant_id = $1 ORDER BY created_at DESC")).
		WithArgs("a1").
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, models.AuditActionEnroll, entries[0].Action)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	rows := sqlmock.NewRows([]string{"id", "applicant_id", "action", "detail", "actor", "created_at"}).
		AddRow("e1", "system", models.AuditActionPlanExecute, "annual transition applied", "operator", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_entries ORDER BY created_at DESC")).
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
