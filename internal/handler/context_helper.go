package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/munivet/campo-api/internal/middleware"
	"github.com/munivet/campo-api/internal/models"
)

// claimsFromContext returns the authenticated claims, or nil for guests.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// parsePositiveInt parses a query parameter falling back to a default.
func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
