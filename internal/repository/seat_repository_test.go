package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var seatTestColumns = []string{
	"facility_id", "facility_name", "classroom_id", "classroom_name",
	"capacity", "template_name", "min_age_months", "max_age_months", "occupied",
}

func TestSeatRepositoryListForFacility(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewSeatRepository(db)
	rows := sqlmock.NewRows(seatTestColumns).
		AddRow("f1", "Creche Central", "c1", "Bercario I", 20, "Bercario", 6, 11, 18).
		AddRow("f1", "Creche Central", "c2", "Maternal I", 25, "Maternal", 12, 23, 25)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.facility_id = $1")).
		WithArgs("f1").
		WillReturnRows(rows)

	seats, err := repo.List(context.Background(), "f1")
	require.NoError(t, err)
	require.Len(t, seats, 2)
	require.Equal(t, 2, seats[0].Available())
	require.Equal(t, 0, seats[1].Available(), "a full classroom reports zero availability")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatRepositoryFind(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewSeatRepository(db)
	rows := sqlmock.NewRows(seatTestColumns).
		AddRow("f1", "Creche Central", "c1", "Bercario I", 20, "Bercario", 6, 11, 3)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.facility_id = $1 AND c.id = $2")).
		WithArgs("f1", "c1").
		WillReturnRows(rows)

	seat, err := repo.Find(context.Background(), "f1", "c1")
	require.NoError(t, err)
	require.Equal(t, "Creche Central", seat.FacilityName)
	require.Equal(t, 17, seat.Available())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatRepositoryFindMissing(t *testing.T) {
	db, mock, cleanup := newApplicantRepoMock(t)
	defer cleanup()

	repo := NewSeatRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.facility_id = $1 AND c.id = $2")).
		WithArgs("f9", "c9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "f9", "c9")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
