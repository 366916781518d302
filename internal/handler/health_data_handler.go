package handler

import (
	"net/http"
	"strconv"

	"github.com/akosolapov/wearsync/internal/dto"
	"github.com/akosolapov/wearsync/internal/service"
	"github.com/gin-gonic/gin"
)

// HealthDataHandler serves aggregated health snapshots
type HealthDataHandler struct {
	healthService service.HealthService
}

// NewHealthDataHandler creates a new health data handler
func NewHealthDataHandler(healthService service.HealthService) *HealthDataHandler {
	return &HealthDataHandler{
		healthService: healthService,
	}
}

// Fetch returns the health snapshot for the last `days` days.
func (h *HealthDataHandler) Fetch(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 90 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Validation failed",
				Message: "days must be an integer between 1 and 90",
			})
			return
		}
		days = parsed
	}

	snapshot, err := h.healthService.Fetch(c.Request.Context(), c.GetHeader(SessionHeader), days)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
