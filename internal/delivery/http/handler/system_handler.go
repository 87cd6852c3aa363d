package handler

import (
	"net/http"

	"github.com/gdugdh24/rakshak-backend/internal/health"
	"github.com/gin-gonic/gin"
)

type SystemHandler struct {
	breaker *health.Breaker
}

func NewSystemHandler(breaker *health.Breaker) *SystemHandler {
	return &SystemHandler{
		breaker: breaker,
	}
}

// Backend handles GET /system/backend
// @Summary Backend mode
// @Description Whether data is live or simulated
// @Tags system
// @Produce json
// @Success 200 {object} health.Status
// @Router /system/backend [get]
func (h *SystemHandler) Backend(c *gin.Context) {
	c.JSON(http.StatusOK, h.breaker.Status())
}

// Reset handles POST /system/backend/reset
// @Summary Retry the live backend
// @Description Probes every dependency immediately and returns live mode when all of them answer
// @Tags system
// @Security BearerAuth
// @Produce json
// @Success 200 {object} health.Status
// @Failure 503 {object} health.Status
// @Router /system/backend/reset [post]
func (h *SystemHandler) Reset(c *gin.Context) {
	if !h.breaker.ForceProbe(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, h.breaker.Status())
		return
	}
	c.JSON(http.StatusOK, h.breaker.Status())
}
