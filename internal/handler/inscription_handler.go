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

type inscriptionService interface {
	Register(ctx context.Context, campaignID string, req service.RegisterInscriptionRequest, claims *models.JWTClaims) (*models.Inscription, error)
	List(ctx context.Context, campaignID string) ([]models.Inscription, error)
	MarkAttended(ctx context.Context, id string) (*models.Inscription, error)
}

// InscriptionHandler exposes door-to-door registration endpoints.
type InscriptionHandler struct {
	service inscriptionService
}

// NewInscriptionHandler constructs the handler.
func NewInscriptionHandler(service inscriptionService) *InscriptionHandler {
	return &InscriptionHandler{service: service}
}

// Register accepts a registration from a guest or an authenticated
// resident. The route runs behind optional authentication, so claims may
// be absent.
func (h *InscriptionHandler) Register(c *gin.Context) {
	var req service.RegisterInscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	inscription, err := h.service.Register(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, inscription)
}

// List serves the staff view of a campaign's inscriptions.
func (h *InscriptionHandler) List(c *gin.Context) {
	inscriptions, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inscriptions, nil)
}

// MarkAttended flips an inscription to attended.
func (h *InscriptionHandler) MarkAttended(c *gin.Context) {
	inscription, err := h.service.MarkAttended(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inscription, nil)
}
