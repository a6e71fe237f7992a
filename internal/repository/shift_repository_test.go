package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyoso-cafe/shift-api/internal/models"
)

func newShiftRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestShiftRepositoryListByDate(t *testing.T) {
	db, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	repo := NewShiftRepository(db)
	rows := sqlmock.NewRows([]string{"id", "date", "staff_id", "staff_name", "slot_id", "week_key", "created_at"}).
		AddRow("sub-1", "2026-01-21", "staff-1", "田中", "SLOT_1", "2026-01-19", time.Now())
	mock.ExpectQuery("SELECT id, date, staff_id").
		WithArgs("2026-01-21").
		WillReturnRows(rows)

	result, err := repo.ListByDate(context.Background(), "2026-01-21")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "SLOT_1", result[0].SlotID)
	assert.Equal(t, "2026-01-19", result[0].WeekKey)
}

func TestShiftRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	repo := NewShiftRepository(db)
	mock.ExpectExec("INSERT INTO shift_submissions").
		WithArgs("sub-1", "2026-01-21", "staff-1", "田中", "SLOT_1", "2026-01-19", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	shift := &models.ShiftSubmission{
		ID:        "sub-1",
		Date:      "2026-01-21",
		StaffID:   "staff-1",
		StaffName: "田中",
		SlotID:    "SLOT_1",
		WeekKey:   "2026-01-19",
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Insert(context.Background(), shift))
}

func TestShiftRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	repo := NewShiftRepository(db)
	mock.ExpectExec("DELETE FROM shift_submissions").
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.Delete(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	mock.ExpectExec("DELETE FROM shift_submissions").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err = repo.Delete(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestShiftRepositoryCountByStaffWeek(t *testing.T) {
	db, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	repo := NewShiftRepository(db)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("staff-1", "2026-01-19").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByStaffWeek(context.Background(), "staff-1", "2026-01-19")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestShiftRepositoryReplaceAll(t *testing.T) {
	db, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	repo := NewShiftRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM shift_submissions").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO shift_submissions").
		WithArgs("sub-1", "2026-01-21", "staff-1", "田中", "SLOT_1", "2026-01-19", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	shifts := []models.ShiftSubmission{
		{ID: "sub-1", Date: "2026-01-21", StaffID: "staff-1", StaffName: "田中", SlotID: "SLOT_1", WeekKey: "2026-01-19", CreatedAt: time.Now()},
	}
	require.NoError(t, repo.ReplaceAll(context.Background(), shifts))
}
