package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// AppointmentRepository reads booked appointment times. Booking itself is
// handled by the citas backend module; this service only needs the taken
// slots to compute availability.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs an appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// BookedTimes returns the "HH:MM" start times already taken on a date.
func (r *AppointmentRepository) BookedTimes(ctx context.Context, date time.Time) ([]string, error) {
	const query = `SELECT hora FROM citas WHERE date = $1 AND estado <> 'CANCELADA' ORDER BY hora ASC`
	var times []string
	if err := r.db.SelectContext(ctx, &times, query, date); err != nil {
		return nil, fmt.Errorf("booked times: %w", err)
	}
	return times, nil
}

type bookedRow struct {
	Date time.Time `db:"date"`
	Hora string    `db:"hora"`
}

// BookedTimesForMonth returns taken start times grouped by date for a
// calendar month, keyed "YYYY-MM-DD".
func (r *AppointmentRepository) BookedTimesForMonth(ctx context.Context, year int, month time.Month) (map[string][]string, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	const query = `SELECT date, hora FROM citas WHERE date >= $1 AND date <= $2 AND estado <> 'CANCELADA' ORDER BY date ASC, hora ASC`
	var rows []bookedRow
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("booked times for month: %w", err)
	}
	booked := make(map[string][]string, len(rows))
	for _, row := range rows {
		key := row.Date.Format("2006-01-02")
		booked[key] = append(booked[key], row.Hora)
	}
	return booked, nil
}
