package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/munivet/campo-api/internal/models"
	appErrors "github.com/munivet/campo-api/pkg/errors"
)

type availabilityScheduleRepository interface {
	GetWeekly(ctx context.Context) (*models.WeeklySchedule, error)
	GetSpecialDayByDate(ctx context.Context, date time.Time) (*models.SpecialDay, error)
}

type availabilityAppointmentRepository interface {
	BookedTimes(ctx context.Context, date time.Time) ([]string, error)
}

// defaultSlotMinutes is the fallback slot granularity when the
// configured value is missing or non-positive.
const defaultSlotMinutes = 30

// AvailabilityService computes bookable appointment slots for a date.
type AvailabilityService struct {
	schedules    availabilityScheduleRepository
	appointments availabilityAppointmentRepository
	slotMinutes  int
	logger       *zap.Logger
}

// NewAvailabilityService constructs the service. slotMinutes is the fixed
// slot granularity; it is configuration, never a per-date input.
func NewAvailabilityService(schedules availabilityScheduleRepository, appointments availabilityAppointmentRepository, slotMinutes int, logger *zap.Logger) *AvailabilityService {
	if slotMinutes <= 0 {
		slotMinutes = defaultSlotMinutes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{schedules: schedules, appointments: appointments, slotMinutes: slotMinutes, logger: logger}
}

// DayAvailability is the slot listing for one date. Reason is set only when
// Slots is empty because the day does not open at all.
type DayAvailability struct {
	Date    string        `json:"fecha"`
	Slots   []models.Slot `json:"slots"`
	Horario string        `json:"horario"`
	Reason  string        `json:"reason,omitempty"`
}

// SlotsForDate resolves the weekly schedule, the date's override and the
// booked appointments, then generates the slot grid. Past slots on the
// current date are not filtered here; that is a presentation guard.
func (s *AvailabilityService) SlotsForDate(ctx context.Context, date time.Time) (*DayAvailability, error) {
	schedule, err := s.schedules.GetWeekly(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly schedule")
	}

	special, err := s.schedules.GetSpecialDayByDate(ctx, date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load special day")
	}

	booked, err := s.appointments.BookedTimes(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booked appointments")
	}

	slots, horario, reason := GenerateSlots(date, schedule, special, booked, s.slotMinutes)
	return &DayAvailability{
		Date:    date.Format("2006-01-02"),
		Slots:   slots,
		Horario: horario,
		Reason:  reason,
	}, nil
}

// GenerateSlots is the pure slot engine. Precedence per date:
// holiday override, continuous-hours override, weekly attendance days,
// then the two-shift weekly boundaries. Slots run from open (inclusive)
// to close (exclusive) at the given granularity.
func GenerateSlots(date time.Time, schedule *models.WeeklySchedule, special *models.SpecialDay, booked []string, slotMinutes int) ([]models.Slot, string, string) {
	if slotMinutes <= 0 {
		slotMinutes = defaultSlotMinutes
	}
	if special != nil && special.Kind == models.SpecialDayHoliday {
		return []models.Slot{}, "", "Feriado"
	}

	type shift struct{ open, close int }
	var shifts []shift
	var horario string

	if special != nil && special.Kind == models.SpecialDayContinuous && special.OpenTime != nil && special.CloseTime != nil {
		open, err1 := parseClock(*special.OpenTime)
		close, err2 := parseClock(*special.CloseTime)
		if err1 != nil || err2 != nil {
			return []models.Slot{}, "", ""
		}
		shifts = []shift{{open, close}}
		horario = fmt.Sprintf("%s - %s (horario continuo)", *special.OpenTime, *special.CloseTime)
	} else {
		if !schedule.ContainsWeekday(date.Weekday()) {
			return []models.Slot{}, "", "Día no laborable"
		}
		mo, err1 := parseClock(schedule.MorningOpen)
		mc, err2 := parseClock(schedule.MorningClose)
		ao, err3 := parseClock(schedule.AfternoonOpen)
		ac, err4 := parseClock(schedule.AfternoonClose)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return []models.Slot{}, "", ""
		}
		shifts = []shift{{mo, mc}, {ao, ac}}
		horario = fmt.Sprintf("%s - %s / %s - %s",
			schedule.MorningOpen, schedule.MorningClose, schedule.AfternoonOpen, schedule.AfternoonClose)
	}

	taken := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}

	slots := []models.Slot{}
	for _, sh := range shifts {
		for t := sh.open; t < sh.close; t += slotMinutes {
			hhmm := formatClock(t)
			state := models.SlotFree
			if _, ok := taken[hhmm]; ok {
				state = models.SlotOccupied
			}
			slots = append(slots, models.Slot{Time: hhmm, State: state})
		}
	}
	return slots, horario, ""
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(raw string) (int, error) {
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", raw, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
