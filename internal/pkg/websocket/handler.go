package websocket

import (
	"net/http"

	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Handler upgrades authenticated requests to notification connections
type Handler struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// HandleConnection godoc
// @Summary Subscribe to notifications
// @Description Upgrades the connection to a WebSocket that streams queue, loan, booking and fine notifications for the caller
// @Tags notifications
// @Security BearerAuth
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /admin/notifications/ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	userID, ok := c.Get("userID")
	id, isInt := userID.(int64)
	if !ok || !isInt || id <= 0 {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "User ID not found in context")))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Int64("userID", id).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		send:   make(chan []byte, outboxSize),
		userID: id,
		logger: h.logger,
	}
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}
