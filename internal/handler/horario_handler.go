package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/munivet/campo-api/internal/models"
	"github.com/munivet/campo-api/internal/service"
	appErrors "github.com/munivet/campo-api/pkg/errors"
	"github.com/munivet/campo-api/pkg/response"
)

type scheduleService interface {
	GetWeekly(ctx context.Context) (*models.WeeklySchedule, error)
	UpdateWeekly(ctx context.Context, req service.UpdateWeeklyRequest) (*models.WeeklySchedule, error)
	ListSpecialDays(ctx context.Context) ([]models.SpecialDay, error)
	CreateSpecialDay(ctx context.Context, req service.CreateSpecialDayRequest) (*models.SpecialDay, error)
	DeleteSpecialDay(ctx context.Context, id string) error
}

// HorarioHandler exposes the weekly schedule and special-day endpoints.
type HorarioHandler struct {
	service scheduleService
}

// NewHorarioHandler constructs the handler.
func NewHorarioHandler(service scheduleService) *HorarioHandler {
	return &HorarioHandler{service: service}
}

// GetWeekly serves the weekly attention schedule.
func (h *HorarioHandler) GetWeekly(c *gin.Context) {
	schedule, err := h.service.GetWeekly(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// UpdateWeekly replaces the weekly attention schedule.
func (h *HorarioHandler) UpdateWeekly(c *gin.Context) {
	var req service.UpdateWeeklyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	schedule, err := h.service.UpdateWeekly(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// ListSpecialDays serves the configured holidays and continuous-hours
// days.
func (h *HorarioHandler) ListSpecialDays(c *gin.Context) {
	days, err := h.service.ListSpecialDays(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}

// CreateSpecialDay registers a holiday or continuous-hours day.
func (h *HorarioHandler) CreateSpecialDay(c *gin.Context) {
	var req service.CreateSpecialDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	day, err := h.service.CreateSpecialDay(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, day)
}

// DeleteSpecialDay removes a special-day entry.
func (h *HorarioHandler) DeleteSpecialDay(c *gin.Context) {
	if err := h.service.DeleteSpecialDay(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
