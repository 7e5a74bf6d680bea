package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var apptColumns = []string{"id", "full_name", "email", "session_type", "date", "time", "status", "created_at", "updated_at"}

const apptID = "6f1c1c4e-8f5b-4f7e-9a53-0f3c5a1b2c3d"

func apptRow(rows *pgxmock.Rows, date, clock, status string, updated time.Time) *pgxmock.Rows {
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	return rows.AddRow(apptID, "Dana Client", "dana@example.com", "discovery call", date, clock, status, created, updated)
}

func TestPostgresRepository_Reschedule(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	before := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	after := before.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(apptID).
		WillReturnRows(apptRow(pgxmock.NewRows(apptColumns), "2026-11-02", "09:30", "pending", before))
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(apptID, "2026-11-05", "14:00").
		WillReturnRows(apptRow(pgxmock.NewRows(apptColumns), "2026-11-05", "14:00", "pending", after))
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock)
	change, err := repo.Reschedule(context.Background(), apptID, Schedule{Date: "2026-11-05", Time: "14:00"})
	require.NoError(t, err)

	assert.Equal(t, Schedule{Date: "2026-11-02", Time: "09:30"}, change.Before.Schedule())
	assert.Equal(t, Schedule{Date: "2026-11-05", Time: "14:00"}, change.After.Schedule())
	assert.Equal(t, after, change.After.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetRejectsUnknownStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM appointments WHERE id").
		WithArgs(apptID).
		WillReturnRows(apptRow(pgxmock.NewRows(apptColumns), "2026-11-02", "09:30", "archived", time.Now()))

	_, err = NewPostgresRepository(mock).Get(context.Background(), apptID)
	assert.ErrorIs(t, err, ErrUnknownStatus)
	assert.ErrorContains(t, err, `"archived"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_RescheduleNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(apptID).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err = NewPostgresRepository(mock).Reschedule(context.Background(), apptID, Schedule{Date: "2026-11-05", Time: "14:00"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_RescheduleCancelled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(apptID).
		WillReturnRows(apptRow(pgxmock.NewRows(apptColumns), "2026-11-02", "09:30", "cancelled", time.Now()))
	mock.ExpectRollback()

	_, err = NewPostgresRepository(mock).Reschedule(context.Background(), apptID, Schedule{Date: "2026-11-05", Time: "14:00"})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_RescheduleUpdateFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(apptID).
		WillReturnRows(apptRow(pgxmock.NewRows(apptColumns), "2026-11-02", "09:30", "pending", time.Now()))
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(apptID, "2026-11-05", "14:00").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err = NewPostgresRepository(mock).Reschedule(context.Background(), apptID, Schedule{Date: "2026-11-05", Time: "14:00"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CancelAlreadyCancelled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(apptID).
		WillReturnRows(apptRow(pgxmock.NewRows(apptColumns), "2026-11-02", "09:30", "cancelled", time.Now()))
	mock.ExpectCommit()

	change, err := NewPostgresRepository(mock).Cancel(context.Background(), apptID)
	require.NoError(t, err)
	assert.Equal(t, change.Before, change.After)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Cancel(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(apptID).
		WillReturnRows(apptRow(pgxmock.NewRows(apptColumns), "2026-11-02", "09:30", "confirmed", time.Now()))
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(apptID, "cancelled").
		WillReturnRows(apptRow(pgxmock.NewRows(apptColumns), "2026-11-02", "09:30", "cancelled", time.Now()))
	mock.ExpectCommit()

	change, err := NewPostgresRepository(mock).Cancel(context.Background(), apptID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, change.Before.Status)
	assert.Equal(t, StatusCancelled, change.After.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateAndGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs("Dana Client", "dana@example.com", "discovery call", "2026-11-02", "09:30", "pending").
		WillReturnRows(apptRow(pgxmock.NewRows(apptColumns), "2026-11-02", "09:30", "pending", now))
	mock.ExpectQuery("FROM appointments WHERE id").
		WithArgs(apptID).
		WillReturnRows(apptRow(pgxmock.NewRows(apptColumns), "2026-11-02", "09:30", "pending", now))
	mock.ExpectQuery("FROM appointments WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	repo := NewPostgresRepository(mock)
	created, err := repo.Create(context.Background(), Appointment{
		FullName: "Dana Client", Email: "dana@example.com", SessionType: "discovery call", Date: "2026-11-02", Time: "09:30",
	})
	require.NoError(t, err)
	assert.Equal(t, apptID, created.ID)
	assert.Equal(t, StatusPending, created.Status)

	got, err := repo.Get(context.Background(), apptID)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)

	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListAndCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("lower\\(email\\) = lower\\(\\$1\\)").
		WithArgs("dana@example.com").
		WillReturnRows(apptRow(pgxmock.NewRows(apptColumns), "2026-11-02", "09:30", "pending", time.Now()))
	mock.ExpectQuery("GROUP BY status").
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("pending", int64(3)).
			AddRow("cancelled", int64(1)))

	repo := NewPostgresRepository(mock)
	list, err := repo.ListByEmail(context.Background(), " dana@example.com ")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[Status]int{StatusPending: 3, StatusCancelled: 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
