package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/apprentix/epa-tracker-api/internal/models"
)

func newRecordRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func recordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "ace360_id", "status", "gateway_submitted", "approved_for_epa", "project_start_date",
		"project_deadline_date", "first_attempt_date", "second_attempt_date", "overall_grade", "grade_date",
		"created_at", "updated_at",
	})
}

func TestRecordRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	repo := NewRecordRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO apprentice_records")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	status := "Approved for EPA"
	record := &models.ApprenticeRecord{ACE360ID: 7001, Status: &status}
	require.NoError(t, repo.Create(context.Background(), record))
	require.NotEmpty(t, record.ID)
	require.False(t, record.CreatedAt.IsZero())

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, ace360_id, status")).
		WithArgs(record.ID).
		WillReturnRows(recordRows().AddRow(record.ID, int64(7001), "Approved for EPA", nil, nil, nil, nil, nil, nil, nil, nil, now, now))

	found, err := repo.FindByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, int64(7001), found.ACE360ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	repo := NewRecordRepository(db)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM apprentice_records")).
		WithArgs("EPA Passed", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, ace360_id, status")).
		WithArgs("EPA Passed", from).
		WillReturnRows(recordRows().AddRow("rec-1", int64(7002), "EPA Passed", nil, nil, nil, nil, nil, nil, "Pass", nil, now, now))

	records, total, err := repo.List(context.Background(), models.RecordFilter{
		Status:  "EPA Passed",
		Gateway: models.DateRange{From: &from},
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, records, 1)
	require.Equal(t, "rec-1", records[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryExistsByACE360ID(t *testing.T) {
	db, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	repo := NewRecordRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(int64(7001)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByACE360ID(context.Background(), 7001, "")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(int64(7001), "rec-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err = repo.ExistsByACE360ID(context.Background(), 7001, "rec-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryUpdateAndDelete(t *testing.T) {
	db, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	repo := NewRecordRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE apprentice_records SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), &models.ApprenticeRecord{ID: "rec-1", ACE360ID: 7001}))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE apprentice_records SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.Error(t, repo.Update(context.Background(), &models.ApprenticeRecord{ID: "missing", ACE360ID: 7001}))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM apprentice_records")).
		WithArgs("rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "rec-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
