package notifications

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"medreport-backend/internal/shared/server/middleware"
	"medreport-backend/internal/shared/server/respond"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.list)
	rg.POST("/notifications/:id/read", h.markRead)
}

func (h *Handler) list(c *gin.Context) {
	inbox, err := h.service.Inbox(c.Request.Context(), middleware.SessionIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Unable to load notifications", nil)
		return
	}
	respond.OK(c, inbox)
}

func (h *Handler) markRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid notification id", nil)
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), middleware.SessionIDFromContext(c), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Notification not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "Unable to update notification", nil)
		return
	}
	respond.NoContent(c)
}
