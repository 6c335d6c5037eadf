package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/munivet/campo-api/internal/service"
	appErrors "github.com/munivet/campo-api/pkg/errors"
	"github.com/munivet/campo-api/pkg/response"
)

type availabilityService interface {
	SlotsForDate(ctx context.Context, date time.Time) (*service.DayAvailability, error)
}

type calendarService interface {
	Summary(ctx context.Context, year int, month time.Month) (*service.MonthSummary, error)
}

// CitaHandler exposes the appointment availability and calendar
// annotation endpoints.
type CitaHandler struct {
	availability availabilityService
	calendar     calendarService
}

// NewCitaHandler constructs the handler.
func NewCitaHandler(availability availabilityService, calendar calendarService) *CitaHandler {
	return &CitaHandler{availability: availability, calendar: calendar}
}

// Availability serves the slot grid for one date.
func (h *CitaHandler) Availability(c *gin.Context) {
	date, err := parseCalendarDate(c.Query("fecha"))
	if err != nil {
		response.Error(c, err)
		return
	}
	day, err := h.availability.SlotsForDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

// MonthSummary serves the special and fully-booked days of one month.
func (h *CitaHandler) MonthSummary(c *gin.Context) {
	year, month, err := parseYearMonth(c.Query("year"), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.calendar.Summary(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// parseCalendarDate accepts the ISO day format used across the cita
// endpoints.
func parseCalendarDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "fecha is required")
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid fecha, expected YYYY-MM-DD")
	}
	return date, nil
}

func parseYearMonth(rawYear, rawMonth string) (int, time.Month, error) {
	year, err := strconv.Atoi(rawYear)
	if err != nil || year < 2000 || year > 2200 {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "invalid year")
	}
	month, err := strconv.Atoi(rawMonth)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "invalid month, expected 1-12")
	}
	return year, time.Month(month), nil
}
