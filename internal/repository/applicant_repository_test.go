package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/educmun/creche-api/internal/models"
)

var applicantTestColumns = []string{
	"id", "full_name", "birth_date", "social_program", "preferred_facility_id", "secondary_facility_id",
	"accepts_any_facility", "guardian_name", "guardian_phone", "guardian_email", "address", "notes", "status",
	"current_facility_id", "current_classroom_id", "convocation_deadline", "penalty_timestamp",
	"desired_transfer_facility_id", "registered_at", "created_at", "updated_at",
}

func newApplicantRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func applicantRow(id string, status models.ApplicantStatus) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id, "Ana Souza", now.AddDate(-2, 0, 0), false, nil, nil,
		true, "Paula Souza", "+55 11 91234-5678", "", "", "", string(status),
		nil, nil, nil, nil,
		nil, now, now, now,
	}
}

func TestApplicantRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewApplicantRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO applicants")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	applicant := &models.Applicant{
		FullName:      "Ana Souza",
		BirthDate:     time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		GuardianName:  "Paula Souza",
		GuardianPhone: "+55 11 91234-5678",
		Status:        models.StatusWaitlisted,
	}
	require.NoError(t, repo.Create(context.Background(), applicant))
	require.NotEmpty(t, applicant.ID, "create assigns an id")
	require.False(t, applicant.RegisteredAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewApplicantRepository(db)
	rows := sqlmock.NewRows(applicantTestColumns).AddRow(applicantRow("a1", models.StatusWaitlisted)...)
	mock.ExpectQuery(regexp.QuoteMeta("FROM applicants WHERE id = $1")).
		WithArgs("a1").
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, "a1", found.ID)
	require.Equal(t, models.StatusWaitlisted, found.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewApplicantRepository(db)
	rows := sqlmock.NewRows(applicantTestColumns).AddRow(applicantRow("a1", models.StatusWaitlisted)...)
	mock.ExpectQuery(regexp.QuoteMeta("a.status = $1")).
		WithArgs("WAITLISTED", "%souza%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("WAITLISTED", "%souza%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	applicants, total, err := repo.List(context.Background(), models.ApplicantFilter{
		Status: models.StatusWaitlisted,
		Search: "Souza",
	})
	require.NoError(t, err)
	require.Len(t, applicants, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryListByStatuses(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewApplicantRepository(db)
	rows := sqlmock.NewRows(applicantTestColumns).
		AddRow(applicantRow("a1", models.StatusWaitlisted)...).
		AddRow(applicantRow("a2", models.StatusCalledUp)...)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status IN ($1, $2) ORDER BY registered_at ASC, id ASC")).
		WithArgs("WAITLISTED", "CALLED_UP").
		WillReturnRows(rows)

	applicants, err := repo.ListByStatuses(context.Background(), models.StatusWaitlisted, models.StatusCalledUp)
	require.NoError(t, err)
	require.Len(t, applicants, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryListByStatusesEmpty(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewApplicantRepository(db)
	applicants, err := repo.ListByStatuses(context.Background())
	require.NoError(t, err)
	require.Nil(t, applicants)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryUpdateClearsGatedColumns(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewApplicantRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("current_facility_id = NULL, current_classroom_id = NULL, convocation_deadline = NULL, penalty_timestamp = NULL")).
		WithArgs("WITHDRAWN", "a1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	rows := sqlmock.NewRows(applicantTestColumns).AddRow(applicantRow("a1", models.StatusWithdrawn)...)
	mock.ExpectQuery(regexp.QuoteMeta("FROM applicants WHERE id = $1")).
		WithArgs("a1").
		WillReturnRows(rows)

	updated, err := repo.Update(context.Background(), "a1", models.ApplicantUpdate{
		Status:        models.StatusWithdrawn,
		ClearSeat:     true,
		ClearDeadline: true,
		ClearPenalty:  true,
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusWithdrawn, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryUpdateNoRow(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewApplicantRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applicants SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), "ghost", models.ApplicantUpdate{Status: models.StatusWithdrawn})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryBulkUpdate(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewApplicantRepository(db)
	facility := "f2"
	classroom := "c2"
	mock.ExpectExec(regexp.QuoteMeta("WHERE id IN ($4, $5)")).
		WithArgs("ENROLLED", facility, classroom, "a1", "a2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.BulkUpdate(context.Background(), []string{"a1", "a2"}, models.ApplicantUpdate{
		Status:      models.StatusEnrolled,
		FacilityID:  &facility,
		ClassroomID: &classroom,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepositoryBulkUpdatePlaceholdersStayContiguous(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewApplicantRepository(db)
	facility := "f2"
	classroom := "c2"
	mock.ExpectExec(regexp.QuoteMeta("WHERE id IN ($4, $5, $6)")).
		WithArgs("ENROLLED", facility, classroom, "a1", "a2", "a3").
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.BulkUpdate(context.Background(), []string{"a1", "a2", "a3"}, models.ApplicantUpdate{
		Status:      models.StatusEnrolled,
		FacilityID:  &facility,
		ClassroomID: &classroom,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
