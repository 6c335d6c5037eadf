package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/munivet/campo-api/internal/models"
	appErrors "github.com/munivet/campo-api/pkg/errors"
)

type calendarScheduleRepository interface {
	GetWeekly(ctx context.Context) (*models.WeeklySchedule, error)
	ListSpecialDaysInRange(ctx context.Context, from, to time.Time) ([]models.SpecialDay, error)
}

type calendarAppointmentRepository interface {
	BookedTimesForMonth(ctx context.Context, year int, month time.Month) (map[string][]string, error)
}

// CalendarService classifies every date of a visible month for the
// booking calendar.
type CalendarService struct {
	schedules    calendarScheduleRepository
	appointments calendarAppointmentRepository
	slotMinutes  int
	logger       *zap.Logger
}

// NewCalendarService constructs the service.
func NewCalendarService(schedules calendarScheduleRepository, appointments calendarAppointmentRepository, slotMinutes int, logger *zap.Logger) *CalendarService {
	if slotMinutes <= 0 {
		slotMinutes = defaultSlotMinutes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{schedules: schedules, appointments: appointments, slotMinutes: slotMinutes, logger: logger}
}

// ConcurridoDay marks a fully booked date.
type ConcurridoDay struct {
	Fecha string `json:"fecha"`
}

// MonthSummary is the monthly calendar annotation payload.
type MonthSummary struct {
	Especiales  []models.SpecialDay `json:"especiales"`
	Concurridos []ConcurridoDay     `json:"concurridos"`
}

// Summary returns the special days and fully booked dates of a month.
func (s *CalendarService) Summary(ctx context.Context, year int, month time.Month) (*MonthSummary, error) {
	classes, specials, err := s.classify(ctx, year, month)
	if err != nil {
		return nil, err
	}

	summary := &MonthSummary{Especiales: specials, Concurridos: []ConcurridoDay{}}
	days := daysInMonth(year, month)
	for day := 1; day <= days; day++ {
		key := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		if classes[key] == models.DayFull {
			summary.Concurridos = append(summary.Concurridos, ConcurridoDay{Fecha: key})
		}
	}
	return summary, nil
}

// ClassifyMonth classifies every date of the month, keyed "YYYY-MM-DD".
func (s *CalendarService) ClassifyMonth(ctx context.Context, year int, month time.Month) (map[string]models.DayClass, error) {
	classes, _, err := s.classify(ctx, year, month)
	return classes, err
}

func (s *CalendarService) classify(ctx context.Context, year int, month time.Month) (map[string]models.DayClass, []models.SpecialDay, error) {
	schedule, err := s.schedules.GetWeekly(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly schedule")
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	specials, err := s.schedules.ListSpecialDaysInRange(ctx, from, to)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load special days")
	}

	booked, err := s.appointments.BookedTimesForMonth(ctx, year, month)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booked appointments")
	}

	classes := make(map[string]models.DayClass, daysInMonth(year, month))
	for day := 1; day <= daysInMonth(year, month); day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		key := date.Format("2006-01-02")
		classes[key] = ClassifyDay(date, schedule, specials, booked[key], s.slotMinutes)
	}
	return classes, specials, nil
}

// ClassifyDay applies the classification precedence for one date:
// holiday, special-hours, non-working, full, normal. It is pure and
// order-independent with respect to the specials list.
func ClassifyDay(date time.Time, schedule *models.WeeklySchedule, specials []models.SpecialDay, booked []string, slotMinutes int) models.DayClass {
	special := specialForDate(date, specials)
	if special != nil {
		switch special.Kind {
		case models.SpecialDayHoliday:
			return models.DayHoliday
		case models.SpecialDayContinuous:
			return models.DaySpecialHours
		}
	}

	if !schedule.ContainsWeekday(date.Weekday()) {
		return models.DayNonWorking
	}

	slots, _, _ := GenerateSlots(date, schedule, nil, booked, slotMinutes)
	if len(slots) > 0 && allOccupied(slots) {
		return models.DayFull
	}
	return models.DayNormal
}

func specialForDate(date time.Time, specials []models.SpecialDay) *models.SpecialDay {
	y, m, d := date.Date()
	for i := range specials {
		sy, sm, sd := specials[i].Date.Date()
		if sy == y && sm == m && sd == d {
			return &specials[i]
		}
	}
	return nil
}

func allOccupied(slots []models.Slot) bool {
	for _, slot := range slots {
		if slot.State != models.SlotOccupied {
			return false
		}
	}
	return true
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
