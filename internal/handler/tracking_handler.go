package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/munivet/campo-api/internal/models"
	"github.com/munivet/campo-api/internal/tracking"
	appErrors "github.com/munivet/campo-api/pkg/errors"
	"github.com/munivet/campo-api/pkg/response"
)

type locationIngestor interface {
	Submit(campaignID string, update models.LocationUpdate) error
}

type positionReader interface {
	Positions(ctx context.Context, campaignID string) ([]models.LocationUpdate, error)
}

type sessionHub interface {
	Open(ctx context.Context, campaignID, workerID, workerName string, broadcast bool) (*tracking.Session, error)
	Offer(campaignID, workerID string, pos tracking.Position) bool
}

// TrackingHandler accepts field-worker position reports and serves the
// campaign map: the last-known-position snapshot for polling clients and
// a live SSE feed for connected viewers.
type TrackingHandler struct {
	ingestor  locationIngestor
	positions positionReader
	hub       sessionHub
}

// NewTrackingHandler constructs the handler.
func NewTrackingHandler(ingestor locationIngestor, positions positionReader, hub sessionHub) *TrackingHandler {
	return &TrackingHandler{ingestor: ingestor, positions: positions, hub: hub}
}

type reportLocationRequest struct {
	Lat float64 `json:"lat" binding:"required"`
	Lng float64 `json:"lng" binding:"required"`
}

// ReportLocation takes one position report from the authenticated field
// worker. A worker streaming in broadcast mode publishes through their
// session's channel; everyone else goes through the ingest queue. Either
// way acceptance only means the update entered the pipeline.
func (h *TrackingHandler) ReportLocation(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req reportLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}

	if h.hub != nil && h.hub.Offer(c.Param("id"), claims.UserID, tracking.Position{Lat: req.Lat, Lng: req.Lng}) {
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
		return
	}

	update := models.LocationUpdate{
		WorkerID: claims.UserID,
		Name:     claims.FullName,
		Lat:      req.Lat,
		Lng:      req.Lng,
	}
	if err := h.ingestor.Submit(c.Param("id"), update); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// Positions serves the last known position of every active field worker
// on the campaign.
func (h *TrackingHandler) Positions(c *gin.Context) {
	positions, err := h.positions.Positions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, positions, nil)
}

// Stream serves the live campaign map over SSE. The connection owns its
// channel session: the bulk snapshot goes out first, then every inbound
// update until the client disconnects. transmitir=true additionally
// re-publishes the worker's own position reports through the session.
func (h *TrackingHandler) Stream(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	broadcast := c.Query("transmitir") == "true"
	session, err := h.hub.Open(c.Request.Context(), c.Param("id"), claims.UserID, claims.FullName, broadcast)
	if err != nil {
		response.Error(c, err)
		return
	}
	// The request context is already done on disconnect.
	defer session.Close(context.Background())

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent(models.EventInitialLocations, session.InitialPoints())
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-session.Updates():
			if !ok {
				return
			}
			session.Apply(update)
			c.SSEvent(models.EventLocationUpdate, update)
			c.Writer.Flush()
		}
	}
}
