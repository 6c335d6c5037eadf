package models

import (
	"time"

	"github.com/lib/pq"
)

// WeeklySchedule is the recurring open days/hours of the service.
// Times are "HH:MM" strings; Weekdays holds time.Weekday values (0=Sunday).
// Singleton, mutated only by an administrator.
type WeeklySchedule struct {
	MorningOpen    string        `db:"morning_open" json:"morning_open"`
	MorningClose   string        `db:"morning_close" json:"morning_close"`
	AfternoonOpen  string        `db:"afternoon_open" json:"afternoon_open"`
	AfternoonClose string        `db:"afternoon_close" json:"afternoon_close"`
	Weekdays       pq.Int64Array `db:"weekdays" json:"weekdays"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// ContainsWeekday reports whether the service operates on the given weekday.
func (w *WeeklySchedule) ContainsWeekday(d time.Weekday) bool {
	for _, wd := range w.Weekdays {
		if int(wd) == int(d) {
			return true
		}
	}
	return false
}

// SpecialDayKind distinguishes date-specific overrides of the weekly schedule.
type SpecialDayKind string

const (
	SpecialDayHoliday    SpecialDayKind = "HOLIDAY"
	SpecialDayContinuous SpecialDayKind = "CONTINUOUS"
)

// SpecialDay overrides the weekly schedule for one date. Unique per date.
// Open/Close are set only for CONTINUOUS kind.
type SpecialDay struct {
	ID          string         `db:"id" json:"id"`
	Date        time.Time      `db:"date" json:"fecha"`
	Kind        SpecialDayKind `db:"kind" json:"kind"`
	Description string         `db:"description" json:"description"`
	OpenTime    *string        `db:"open_time" json:"open_time,omitempty"`
	CloseTime   *string        `db:"close_time" json:"close_time,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// SlotState marks a generated slot as bookable or taken.
type SlotState string

const (
	SlotFree     SlotState = "free"
	SlotOccupied SlotState = "occupied"
)

// Slot is a discrete bookable time unit on a given date. Derived, never stored.
type Slot struct {
	Time  string    `json:"hora"`
	State SlotState `json:"estado"`
}

// DayClass is the presentation category of a calendar date.
type DayClass string

const (
	DayHoliday      DayClass = "holiday"
	DaySpecialHours DayClass = "special-hours"
	DayNonWorking   DayClass = "non-working"
	DayFull         DayClass = "full"
	DayNormal       DayClass = "normal"
)
