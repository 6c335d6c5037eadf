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

type campaignService interface {
	List(ctx context.Context, filter models.CampaignFilter) ([]models.Campaign, *models.Pagination, error)
	ListPublic(ctx context.Context) ([]models.PublicCampaign, error)
	Get(ctx context.Context, id string) (*models.Campaign, error)
	Create(ctx context.Context, req service.CreateCampaignRequest) (*models.Campaign, error)
	Update(ctx context.Context, id string, req service.UpdateCampaignRequest) (*models.Campaign, error)
	Start(ctx context.Context, id string) (*models.Campaign, error)
	Finish(ctx context.Context, id string) (*service.FinishResult, error)
	ListAssignments(ctx context.Context, campaignID string) ([]models.Assignment, int, error)
	ReplaceAssignments(ctx context.Context, campaignID string, reqs []service.AssignmentRequest) ([]models.Assignment, error)
}

// CampaignHandler exposes campaign lifecycle and staffing endpoints.
type CampaignHandler struct {
	service campaignService
}

// NewCampaignHandler constructs the handler.
func NewCampaignHandler(service campaignService) *CampaignHandler {
	return &CampaignHandler{service: service}
}

// ListPublic serves the unauthenticated campaign list.
func (h *CampaignHandler) ListPublic(c *gin.Context) {
	campaigns, err := h.service.ListPublic(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaigns, nil)
}

// List serves the staff campaign list.
func (h *CampaignHandler) List(c *gin.Context) {
	filter := models.CampaignFilter{
		State:    models.CampaignState(c.Query("state")),
		Type:     c.Query("type"),
		Page:     parsePositiveInt(c.Query("page"), 1),
		PageSize: parsePositiveInt(c.Query("page_size"), 20),
	}
	campaigns, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaigns, pagination)
}

// Get serves one campaign.
func (h *CampaignHandler) Get(c *gin.Context) {
	campaign, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaign, nil)
}

// Create registers a campaign.
func (h *CampaignHandler) Create(c *gin.Context) {
	var req service.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	campaign, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, campaign)
}

// Update edits a campaign subject to lifecycle guards.
func (h *CampaignHandler) Update(c *gin.Context) {
	var req service.UpdateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	campaign, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaign, nil)
}

// Start confirms the PLANNED -> RUNNING transition.
func (h *CampaignHandler) Start(c *gin.Context) {
	campaign, err := h.service.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaign, nil)
}

// Finish confirms the RUNNING -> FINISHED transition.
func (h *CampaignHandler) Finish(c *gin.Context) {
	result, err := h.service.Finish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Campaign, nil, map[string]interface{}{
		"pending_inscriptions": result.PendingInscriptions,
	})
}

// ListAssignments serves the staffing list with the allocated running total.
func (h *CampaignHandler) ListAssignments(c *gin.Context) {
	assignments, total, err := h.service.ListAssignments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil, map[string]interface{}{
		"allocated_total": total,
	})
}

// ReplaceAssignments swaps the campaign staffing.
func (h *CampaignHandler) ReplaceAssignments(c *gin.Context) {
	var reqs []service.AssignmentRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	assignments, err := h.service.ReplaceAssignments(c.Request.Context(), c.Param("id"), reqs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}
