package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munivet/campo-api/internal/models"
)

func newScheduleMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryGetWeekly(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"morning_open", "morning_close", "afternoon_open", "afternoon_close", "weekdays", "updated_at"}).
		AddRow("08:00", "12:00", "14:00", "18:00", pq.Int64Array{1, 2, 3, 4, 5}, time.Now())
	mock.ExpectQuery("SELECT morning_open, morning_close, afternoon_open, afternoon_close, weekdays, updated_at\\s+FROM horario_config WHERE singleton = TRUE").
		WillReturnRows(rows)

	schedule, err := repo.GetWeekly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "08:00", schedule.MorningOpen)
	assert.True(t, schedule.ContainsWeekday(time.Monday))
	assert.False(t, schedule.ContainsWeekday(time.Sunday))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateWeeklyUpserts(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("INSERT INTO horario_config .*ON CONFLICT \\(singleton\\) DO UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 1))

	schedule := &models.WeeklySchedule{
		MorningOpen:    "08:00",
		MorningClose:   "12:00",
		AfternoonOpen:  "14:00",
		AfternoonClose: "18:00",
		Weekdays:       pq.Int64Array{1, 2, 3, 4, 5},
	}
	require.NoError(t, repo.UpdateWeekly(context.Background(), schedule))
	assert.False(t, schedule.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateSpecialDayAssignsID(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("INSERT INTO horario_especiales").
		WillReturnResult(sqlmock.NewResult(1, 1))

	day := &models.SpecialDay{
		Date:        time.Date(2026, 9, 24, 0, 0, 0, 0, time.UTC),
		Kind:        models.SpecialDayHoliday,
		Description: "Aniversario departamental",
	}
	require.NoError(t, repo.CreateSpecialDay(context.Background(), day))
	assert.NotEmpty(t, day.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListSpecialDaysInRange(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "date", "kind", "description", "open_time", "close_time", "created_at"}).
		AddRow("s1", from.AddDate(0, 0, 1), "HOLIDAY", "Feriado", nil, nil, time.Now())
	mock.ExpectQuery("SELECT id, date, kind, .* FROM horario_especiales WHERE date >= \\$1 AND date <= \\$2").
		WithArgs(from, to).
		WillReturnRows(rows)

	days, err := repo.ListSpecialDaysInRange(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, models.SpecialDayHoliday, days[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
