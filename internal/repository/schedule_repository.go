package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/munivet/campo-api/internal/models"
)

// ScheduleRepository persists the weekly schedule singleton and its
// date-specific overrides.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// GetWeekly returns the weekly schedule configuration.
func (r *ScheduleRepository) GetWeekly(ctx context.Context) (*models.WeeklySchedule, error) {
	const query = `SELECT morning_open, morning_close, afternoon_open, afternoon_close, weekdays, updated_at
FROM horario_config WHERE singleton = TRUE`
	var schedule models.WeeklySchedule
	if err := r.db.GetContext(ctx, &schedule, query); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// UpdateWeekly upserts the weekly schedule configuration.
func (r *ScheduleRepository) UpdateWeekly(ctx context.Context, schedule *models.WeeklySchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO horario_config (singleton, morning_open, morning_close, afternoon_open, afternoon_close, weekdays, updated_at)
VALUES (TRUE, :morning_open, :morning_close, :afternoon_open, :afternoon_close, :weekdays, :updated_at)
ON CONFLICT (singleton) DO UPDATE SET morning_open = EXCLUDED.morning_open, morning_close = EXCLUDED.morning_close,
afternoon_open = EXCLUDED.afternoon_open, afternoon_close = EXCLUDED.afternoon_close, weekdays = EXCLUDED.weekdays, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("update weekly schedule: %w", err)
	}
	return nil
}

const specialDayColumns = "id, date, kind, description, open_time, close_time, created_at"

// ListSpecialDays returns all special days ordered by date.
func (r *ScheduleRepository) ListSpecialDays(ctx context.Context) ([]models.SpecialDay, error) {
	query := fmt.Sprintf("SELECT %s FROM horario_especiales ORDER BY date ASC", specialDayColumns)
	var days []models.SpecialDay
	if err := r.db.SelectContext(ctx, &days, query); err != nil {
		return nil, fmt.Errorf("list special days: %w", err)
	}
	return days, nil
}

// ListSpecialDaysInRange returns special days inside [from, to].
func (r *ScheduleRepository) ListSpecialDaysInRange(ctx context.Context, from, to time.Time) ([]models.SpecialDay, error) {
	query := fmt.Sprintf("SELECT %s FROM horario_especiales WHERE date >= $1 AND date <= $2 ORDER BY date ASC", specialDayColumns)
	var days []models.SpecialDay
	if err := r.db.SelectContext(ctx, &days, query, from, to); err != nil {
		return nil, fmt.Errorf("list special days in range: %w", err)
	}
	return days, nil
}

// GetSpecialDayByDate returns the override for a date, if any.
func (r *ScheduleRepository) GetSpecialDayByDate(ctx context.Context, date time.Time) (*models.SpecialDay, error) {
	query := fmt.Sprintf("SELECT %s FROM horario_especiales WHERE date = $1", specialDayColumns)
	var day models.SpecialDay
	if err := r.db.GetContext(ctx, &day, query, date); err != nil {
		return nil, err
	}
	return &day, nil
}

// CreateSpecialDay inserts a special day.
func (r *ScheduleRepository) CreateSpecialDay(ctx context.Context, day *models.SpecialDay) error {
	if day.ID == "" {
		day.ID = uuid.NewString()
	}
	if day.CreatedAt.IsZero() {
		day.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO horario_especiales (id, date, kind, description, open_time, close_time, created_at)
VALUES (:id, :date, :kind, :description, :open_time, :close_time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, day); err != nil {
		return fmt.Errorf("create special day: %w", err)
	}
	return nil
}

// DeleteSpecialDay removes a special day.
func (r *ScheduleRepository) DeleteSpecialDay(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM horario_especiales WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete special day: %w", err)
	}
	return nil
}
