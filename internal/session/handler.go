package session

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medreport-backend/internal/shared/server/middleware"
	"medreport-backend/internal/shared/server/respond"
	"medreport-backend/internal/shared/telemetry"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/session", h.reset)
}

// reset wipes every report, notification and chat turn held for the caller.
func (h *Handler) reset(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	if err := h.store.Reset(c.Request.Context(), sessionID); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Unable to reset session", nil)
		return
	}
	telemetry.Info("session.reset", map[string]any{"session_id": sessionID})
	respond.NoContent(c)
}
