package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/munivet/campo-api/internal/models"
)

func fullDayTimes() []string {
	times := make([]string, 0, 16)
	for _, open := range []int{8 * 60, 14 * 60} {
		for m := open; m < open+4*60; m += 30 {
			times = append(times, formatClock(m))
		}
	}
	return times
}

func TestClassifyMonthPrecedence(t *testing.T) {
	holiday := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	open, close := "08:00", "14:00"
	schedules := &mockScheduleReader{
		schedule: weeklyFixture(),
		specials: map[string]models.SpecialDay{
			"2026-09-02": {Date: holiday, Kind: models.SpecialDayHoliday},
			"2026-09-03": {Date: holiday.AddDate(0, 0, 1), Kind: models.SpecialDayContinuous, OpenTime: &open, CloseTime: &close},
		},
	}
	appointments := &mockAppointmentReader{booked: map[string][]string{
		"2026-09-04": fullDayTimes(),
	}}
	svc := NewCalendarService(schedules, appointments, 30, zap.NewNop())

	classes, err := svc.ClassifyMonth(context.Background(), 2026, time.September)
	require.NoError(t, err)
	assert.Equal(t, models.DayHoliday, classes["2026-09-02"])
	assert.Equal(t, models.DaySpecialHours, classes["2026-09-03"])
	assert.Equal(t, models.DayFull, classes["2026-09-04"])
	assert.Equal(t, models.DayNonWorking, classes["2026-09-06"])
	assert.Equal(t, models.DayNormal, classes["2026-09-07"])
	assert.Len(t, classes, 30)
}

func TestClassifyDayHolidayBeatsFullBooking(t *testing.T) {
	date := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	specials := []models.SpecialDay{{Date: date, Kind: models.SpecialDayHoliday}}

	class := ClassifyDay(date, weeklyFixture(), specials, fullDayTimes(), 30)
	assert.Equal(t, models.DayHoliday, class)
}

func TestClassifyDayOrderIndependent(t *testing.T) {
	date := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	other := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	forward := []models.SpecialDay{
		{Date: other, Kind: models.SpecialDayContinuous},
		{Date: date, Kind: models.SpecialDayHoliday},
	}
	reversed := []models.SpecialDay{forward[1], forward[0]}

	assert.Equal(t, ClassifyDay(date, weeklyFixture(), forward, nil, 30), ClassifyDay(date, weeklyFixture(), reversed, nil, 30))
}

func TestClassifyDayPartialBookingStaysNormal(t *testing.T) {
	date := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	class := ClassifyDay(date, weeklyFixture(), nil, []string{"08:00", "09:00"}, 30)
	assert.Equal(t, models.DayNormal, class)
}

func TestSummaryListsSpecialsAndFullDays(t *testing.T) {
	holiday := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	schedules := &mockScheduleReader{
		schedule: weeklyFixture(),
		specials: map[string]models.SpecialDay{
			"2026-09-02": {Date: holiday, Kind: models.SpecialDayHoliday, Description: "Feriado departamental"},
		},
	}
	appointments := &mockAppointmentReader{booked: map[string][]string{
		"2026-09-04": fullDayTimes(),
	}}
	svc := NewCalendarService(schedules, appointments, 30, zap.NewNop())

	summary, err := svc.Summary(context.Background(), 2026, time.September)
	require.NoError(t, err)
	require.Len(t, summary.Especiales, 1)
	assert.Equal(t, models.SpecialDayHoliday, summary.Especiales[0].Kind)
	require.Len(t, summary.Concurridos, 1)
	assert.Equal(t, "2026-09-04", summary.Concurridos[0].Fecha)
}
