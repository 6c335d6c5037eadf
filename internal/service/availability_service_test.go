package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/munivet/campo-api/internal/models"
)

type mockScheduleReader struct {
	schedule *models.WeeklySchedule
	specials map[string]models.SpecialDay
}

func (m *mockScheduleReader) GetWeekly(ctx context.Context) (*models.WeeklySchedule, error) {
	return m.schedule, nil
}

func (m *mockScheduleReader) GetSpecialDayByDate(ctx context.Context, date time.Time) (*models.SpecialDay, error) {
	if s, ok := m.specials[date.Format("2006-01-02")]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleReader) ListSpecialDaysInRange(ctx context.Context, from, to time.Time) ([]models.SpecialDay, error) {
	var list []models.SpecialDay
	for _, s := range m.specials {
		if !s.Date.Before(from) && !s.Date.After(to) {
			list = append(list, s)
		}
	}
	return list, nil
}

type mockAppointmentReader struct {
	booked map[string][]string
}

func (m *mockAppointmentReader) BookedTimes(ctx context.Context, date time.Time) ([]string, error) {
	return m.booked[date.Format("2006-01-02")], nil
}

func (m *mockAppointmentReader) BookedTimesForMonth(ctx context.Context, year int, month time.Month) (map[string][]string, error) {
	return m.booked, nil
}

// Mon-Fri, two shifts of four hours each.
func weeklyFixture() *models.WeeklySchedule {
	return &models.WeeklySchedule{
		MorningOpen:    "08:00",
		MorningClose:   "12:00",
		AfternoonOpen:  "14:00",
		AfternoonClose: "18:00",
		Weekdays:       []int64{1, 2, 3, 4, 5},
	}
}

func TestSlotsForDateTwoShifts(t *testing.T) {
	wednesday := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	schedules := &mockScheduleReader{schedule: weeklyFixture()}
	appointments := &mockAppointmentReader{booked: map[string][]string{"2026-09-02": {"09:00"}}}
	svc := NewAvailabilityService(schedules, appointments, 30, zap.NewNop())

	day, err := svc.SlotsForDate(context.Background(), wednesday)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-02", day.Date)
	assert.Empty(t, day.Reason)
	// Four hours per shift at 30 minutes: 8 + 8 slots.
	require.Len(t, day.Slots, 16)
	assert.Equal(t, "08:00", day.Slots[0].Time)
	assert.Equal(t, "11:30", day.Slots[7].Time)
	assert.Equal(t, "14:00", day.Slots[8].Time)
	assert.Equal(t, "17:30", day.Slots[15].Time)

	occupied := 0
	for _, slot := range day.Slots {
		if slot.State == models.SlotOccupied {
			occupied++
			assert.Equal(t, "09:00", slot.Time)
		}
	}
	assert.Equal(t, 1, occupied)
}

func TestSlotsForDateHolidayOverridesEverything(t *testing.T) {
	wednesday := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	schedules := &mockScheduleReader{
		schedule: weeklyFixture(),
		specials: map[string]models.SpecialDay{
			"2026-09-02": {Date: wednesday, Kind: models.SpecialDayHoliday},
		},
	}
	appointments := &mockAppointmentReader{booked: map[string][]string{"2026-09-02": {"09:00"}}}
	svc := NewAvailabilityService(schedules, appointments, 30, zap.NewNop())

	day, err := svc.SlotsForDate(context.Background(), wednesday)
	require.NoError(t, err)
	assert.Empty(t, day.Slots)
	assert.Equal(t, "Feriado", day.Reason)
}

func TestSlotsForDateContinuousIgnoresShiftSplit(t *testing.T) {
	wednesday := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	open, close := "09:00", "15:00"
	schedules := &mockScheduleReader{
		schedule: weeklyFixture(),
		specials: map[string]models.SpecialDay{
			"2026-09-02": {Date: wednesday, Kind: models.SpecialDayContinuous, OpenTime: &open, CloseTime: &close},
		},
	}
	svc := NewAvailabilityService(schedules, &mockAppointmentReader{}, 30, zap.NewNop())

	day, err := svc.SlotsForDate(context.Background(), wednesday)
	require.NoError(t, err)
	// A single six-hour block, no midday gap.
	require.Len(t, day.Slots, 12)
	assert.Equal(t, "09:00", day.Slots[0].Time)
	assert.Equal(t, "14:30", day.Slots[11].Time)
	assert.Contains(t, day.Horario, "horario continuo")
}

func TestSlotsForDateNonWorkingWeekday(t *testing.T) {
	sunday := time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)
	schedules := &mockScheduleReader{schedule: weeklyFixture()}
	svc := NewAvailabilityService(schedules, &mockAppointmentReader{}, 30, zap.NewNop())

	day, err := svc.SlotsForDate(context.Background(), sunday)
	require.NoError(t, err)
	assert.Empty(t, day.Slots)
	assert.Equal(t, "Día no laborable", day.Reason)
}

func TestGenerateSlotsCloseExclusive(t *testing.T) {
	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	slots, _, reason := GenerateSlots(monday, weeklyFixture(), nil, nil, 60)
	require.Empty(t, reason)
	// 60-minute granularity: the close boundary itself never becomes a slot.
	require.Len(t, slots, 8)
	assert.Equal(t, "11:00", slots[3].Time)
	assert.Equal(t, "17:00", slots[7].Time)
}

func TestGenerateSlotsDefaultsGranularity(t *testing.T) {
	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	for _, minutes := range []int{0, -15} {
		slots, _, reason := GenerateSlots(monday, weeklyFixture(), nil, nil, minutes)
		require.Empty(t, reason)
		require.Len(t, slots, 16)
		assert.Equal(t, "08:30", slots[1].Time)
	}
}
