package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthController reports liveness and database reachability
type HealthController struct {
	db pinger
}

// NewHealthController creates a new HealthController
func NewHealthController(db pinger) *HealthController {
	return &HealthController{db: db}
}

// Health handles the readiness probe
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Failure 503 {object} dto.ErrorResponse "Database unreachable"
// @Router /health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthTimeout)
	defer cancel()

	if err := c.db.Ping(pingCtx); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeServiceUnavailable, "Database unreachable")))
		return
	}
	respondOK(ctx, http.StatusOK, gin.H{"status": "ok", "database": "ok"}, "")
}

// Ping handles the liveness probe
// @Summary Ping
// @Tags health
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Router /ping [get]
func (c *HealthController) Ping(ctx *gin.Context) {
	respondOK(ctx, http.StatusOK, gin.H{"message": "pong"}, "")
}
