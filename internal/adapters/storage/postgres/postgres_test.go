package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/domain/explanations"
	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/domain/schedule"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var medCols = []string{
	"id", "user_id", "name", "dosage", "times", "stock", "low_stock_threshold",
	"instructions", "prescribed_by", "created_at", "updated_at",
}

func TestMedicationsRepo_CreateJoinsTimes(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMedicationsRepo(db)
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+medications`).
		WithArgs("m1", "u1", "Metformin", "500mg", "08:00,20:00", 30, 5, "", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), medications.Medication{
		ID: "m1", UserID: "u1", Name: "Metformin", Dosage: "500mg",
		Times: []string{"08:00", "20:00"}, Stock: 30, LowStockThreshold: 5,
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicationsRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMedicationsRepo(db)
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT.+FROM\s+medications\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2`).
		WithArgs("m1", "u1").
		WillReturnRows(sqlmock.NewRows(medCols).
			AddRow("m1", "u1", "Metformin", "500mg", "08:00,20:00", 30, 5, "with food", "Dr. X", now, now))

	m, err := repo.GetByID(context.Background(), "u1", "m1")
	require.NoError(t, err)
	require.Equal(t, []string{"08:00", "20:00"}, m.Times)
	require.Equal(t, "with food", m.Instructions)

	mock.ExpectQuery(`(?s)SELECT.+FROM\s+medications`).
		WithArgs("missing", "u1").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByID(context.Background(), "u1", "missing")
	require.ErrorIs(t, err, medications.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicationsRepo_AdjustStockIsSingleStatement(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMedicationsRepo(db)

	mock.ExpectQuery(`(?s)UPDATE\s+medications\s+SET\s+stock\s*=\s*GREATEST\(stock\s*\+\s*\$3,\s*0\).+RETURNING\s+stock`).
		WithArgs("m1", "u1", -1).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(29))

	n, err := repo.AdjustStock(context.Background(), "u1", "m1", -1)
	require.NoError(t, err)
	require.Equal(t, 29, n)

	mock.ExpectQuery(`(?s)UPDATE\s+medications`).
		WithArgs("gone", "u1", 1).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.AdjustStock(context.Background(), "u1", "gone", 1)
	require.ErrorIs(t, err, medications.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicationsRepo_UpdateAndDeleteNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMedicationsRepo(db)

	mock.ExpectExec(`(?s)UPDATE\s+medications`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Update(context.Background(), medications.Medication{ID: "m1", UserID: "u1"}), medications.ErrNotFound)

	mock.ExpectExec(`DELETE\s+FROM\s+medications`).WithArgs("m1", "u1").WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), "u1", "m1"), medications.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

var doseCols = []string{
	"id", "user_id", "medication_id", "medication_name", "bucket", "date",
	"scheduled_at", "actual_at", "taken", "skipped", "created_at",
}

func TestDoseLogsRepo_CreateDuplicateIsAlreadyExists(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDoseLogsRepo(db, "")
	now := time.Date(2025, 6, 1, 8, 5, 0, 0, time.UTC)

	e := adherence.DoseLogEntry{
		ID: "d1", UserID: "u1", MedicationID: "m1", MedicationName: "Metformin",
		Bucket: schedule.BucketMorning, Date: "2025-06-01",
		ScheduledAt: now, ActualAt: now, Taken: true, CreatedAt: now,
	}

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+dose_logs.+ON\s+CONFLICT\s+\(user_id,\s*medication_id,\s*bucket,\s*date\)\s+DO\s+NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), e))

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+dose_logs`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Create(context.Background(), e), adherence.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDoseLogsRepo_FindByKey(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDoseLogsRepo(db, "")
	now := time.Date(2025, 6, 1, 8, 5, 0, 0, time.UTC)
	k := adherence.Key{MedicationID: "m1", Bucket: schedule.BucketMorning, Date: "2025-06-01"}

	mock.ExpectQuery(`(?s)SELECT.+FROM\s+dose_logs\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs("u1", "m1", "morning", "2025-06-01").
		WillReturnRows(sqlmock.NewRows(doseCols).
			AddRow("d1", "u1", "m1", "Metformin", "morning", "2025-06-01", now, now, true, false, now))

	e, err := repo.FindByKey(context.Background(), "u1", k)
	require.NoError(t, err)
	require.Equal(t, k, e.Key())

	mock.ExpectQuery(`(?s)SELECT.+FROM\s+dose_logs`).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByKey(context.Background(), "u1", k)
	require.ErrorIs(t, err, adherence.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDoseLogsRepo_ListByDateRange(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDoseLogsRepo(db, "")
	now := time.Date(2025, 6, 1, 8, 5, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)FROM\s+dose_logs\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+date\s*>=\s*\$2\s+AND\s+date\s*<=\s*\$3`).
		WithArgs("u1", "2025-06-01", "2025-06-30").
		WillReturnRows(sqlmock.NewRows(doseCols).
			AddRow("d1", "u1", "m1", "A", "morning", "2025-06-01", now, now, true, false, now).
			AddRow("d2", "u1", "m2", "B", "night", "2025-06-02", now, now, true, false, now))

	got, err := repo.ListByDateRange(context.Background(), "u1", "2025-06-01", "2025-06-30")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, schedule.BucketNight, got[1].Bucket)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDoseLogsRepo_DeleteAndWatchWithoutDSN(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDoseLogsRepo(db, "")

	mock.ExpectExec(`DELETE\s+FROM\s+dose_logs`).WithArgs("d1", "u1").WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), "u1", "d1"), adherence.ErrNotFound)

	_, err := repo.WatchByDate(context.Background(), "u1", "2025-06-01")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExplanationsRepo_PutUpserts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExplanationsRepo(db)
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+medication_explanations.+ON\s+CONFLICT\s+\(name\)\s+DO\s+UPDATE`).
		WithArgs("Metformin", "a", "b", "c", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Put(context.Background(), explanations.Record{
		Name:               "Metformin",
		Sections:           explanations.Sections{WhatItDoes: "a", HowItHelps: "b", ImportantNotes: "c"},
		ReferenceFetchedAt: now,
		UpdatedAt:          now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExplanationsRepo_GetAndDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExplanationsRepo(db)
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT.+FROM\s+medication_explanations`).
		WithArgs("Metformin").
		WillReturnRows(sqlmock.NewRows([]string{"name", "what_it_does", "how_it_helps", "important_notes", "reference_fetched_at", "updated_at"}).
			AddRow("Metformin", "a", "b", "c", now, now))

	rec, err := repo.Get(context.Background(), "Metformin")
	require.NoError(t, err)
	require.Equal(t, "a", rec.Sections.WhatItDoes)

	mock.ExpectQuery(`(?s)SELECT.+FROM\s+medication_explanations`).WillReturnError(sql.ErrNoRows)
	_, err = repo.Get(context.Background(), "Other")
	require.ErrorIs(t, err, explanations.ErrNotFound)

	mock.ExpectExec(`DELETE\s+FROM\s+medication_explanations`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), "Other"), explanations.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_UsesEmbeddedFS(t *testing.T) {
	db, _ := newMock(t)

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	called := false
	gooseUp = func(ctx context.Context, _ *sql.DB, dir string) error {
		called = true
		require.Equal(t, ".", dir)
		return nil
	}
	require.NoError(t, RunMigrations(context.Background(), db))
	require.True(t, called)

	gooseUp = func(ctx context.Context, _ *sql.DB, dir string) error { return errors.New("boom") }
	require.Error(t, RunMigrations(context.Background(), db))
}
